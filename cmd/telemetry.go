package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/critpath/internal/telemetry"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "View JSONL telemetry events of scheduling runs",
	Long: `Reads and formats a telemetry file written by "critpath schedule --telemetry".

Without --run, shows the most recent file in telemetry_dir.
With --follow (-f), watches the file for new events (like tail -f).`,
	Args: cobra.NoArgs,
	RunE: runTelemetry,
}

func init() {
	telemetryCmd.Flags().String("run", "", "run ID to view (default: most recent)")
	telemetryCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	rootCmd.AddCommand(telemetryCmd)
}

func runTelemetry(cmd *cobra.Command, _ []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	runID, _ := cmd.Flags().GetString("run")
	follow, _ := cmd.Flags().GetBool("follow")

	path, err := resolveTelemetryPath(s.cfg.TelemetryDir, runID)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(f)
	if err := printLines(out, reader); err != nil {
		return fmt.Errorf("telemetry: read %s: %w", path, err)
	}
	if !follow {
		return nil
	}
	return tailFollow(cmd, reader, path)
}

// printLines prints every complete line available from r.
func printLines(w io.Writer, r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		telemetry.Print(w, line)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// tailFollow prints new events as they are appended until interrupted.
func tailFollow(cmd *cobra.Command, r *bufio.Reader, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("telemetry: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("telemetry: watch %s: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			if err := printLines(cmd.OutOrStdout(), r); err != nil {
				return fmt.Errorf("telemetry: read %s: %w", path, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("telemetry: watch %s: %w", path, err)
		}
	}
}

// resolveTelemetryPath finds the JSONL file of runID in dir, or the most
// recently modified one when runID is empty.
func resolveTelemetryPath(dir, runID string) (string, error) {
	if runID != "" {
		path := filepath.Join(dir, runID+".jsonl")
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("telemetry: no file for run %q: %w", runID, err)
		}
		return path, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("telemetry: cannot read %s: %w", dir, err)
	}

	type candidate struct {
		name string
		info os.FileInfo
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{e.Name(), info})
	}
	if len(files) == 0 {
		return "", fmt.Errorf("telemetry: no JSONL files in %s", dir)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].info.ModTime().Before(files[j].info.ModTime())
	})
	return filepath.Join(dir, files[len(files)-1].name), nil
}
