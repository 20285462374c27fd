// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file created inside Config.Dir.
const FileName = "critpath.log"

var (
	// Logger is the global logger instance. It discards output until Init
	// is called.
	Logger = log.New(io.Discard)
)

// Config holds logger configuration.
type Config struct {
	Debug bool
	// Dir is the log directory. Empty disables the log file.
	Dir string
	// Stderr receives a mirror of the log in debug mode. Defaults to
	// os.Stderr.
	Stderr io.Writer
}

// Init initializes the global logger with the given configuration.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

// New builds a logger writing to a rotating file in cfg.Dir, mirrored to
// stderr when cfg.Debug is set.
func New(cfg Config) (*log.Logger, error) {
	var writers []io.Writer
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, FileName),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
		stderr := cfg.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	return log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "critpath",
	}), nil
}

// Debug logs a debug message
func Debug(msg string, keyvals ...any) {
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message
func Info(msg string, keyvals ...any) {
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message
func Warn(msg string, keyvals ...any) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message
func Error(msg string, keyvals ...any) {
	Logger.Error(msg, keyvals...)
}
