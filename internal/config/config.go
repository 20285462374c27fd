package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/papapumpkin/critpath/internal/calendar"
	"github.com/papapumpkin/critpath/internal/project"
)

// CalendarConfig describes the working calendar.
type CalendarConfig struct {
	DayStart string   `mapstructure:"day_start"`
	DayEnd   string   `mapstructure:"day_end"`
	Workdays []string `mapstructure:"workdays"`
	Timezone string   `mapstructure:"timezone"`
}

// UnitsConfig holds the duration unit conventions.
type UnitsConfig struct {
	HoursPerDay  float64 `mapstructure:"hours_per_day"`
	DaysPerWeek  float64 `mapstructure:"days_per_week"`
	DaysPerMonth float64 `mapstructure:"days_per_month"`
	// Default is the unit assumed for bare numbers.
	Default string `mapstructure:"default"`
}

// Config holds all runtime configuration for a critpath run.
// Values are populated from .critpath.yaml, CRITPATH_* env vars, and CLI flags.
type Config struct {
	Calendar      CalendarConfig `mapstructure:"calendar"`
	Units         UnitsConfig    `mapstructure:"units"`
	IgnoreMissing bool           `mapstructure:"ignore_missing"`
	FloatEpsilon  float64        `mapstructure:"float_epsilon"`
	HistoryDB     string         `mapstructure:"history_db"`
	TelemetryDir  string         `mapstructure:"telemetry_dir"`
	LogDir        string         `mapstructure:"log_dir"`
	Verbose       bool           `mapstructure:"verbose"`

	// EffectiveLevels are the task levels whose durations roll up their
	// predecessors.
	EffectiveLevels []string `mapstructure:"effective_levels"`
}

// EnvPrefix is the prefix of environment overrides: calendar.day_start is
// read from CRITPATH_CALENDAR_DAY_START.
const EnvPrefix = "CRITPATH"

// BindEnv configures viper to read CRITPATH_* variables, including nested
// keys.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("calendar.day_start", "08:00")
	viper.SetDefault("calendar.day_end", "17:00")
	viper.SetDefault("calendar.workdays", []string{"Mon", "Tue", "Wed", "Thu", "Fri"})
	viper.SetDefault("calendar.timezone", "UTC")
	viper.SetDefault("units.hours_per_day", 8.0)
	viper.SetDefault("units.days_per_week", 5.0)
	viper.SetDefault("units.days_per_month", 20.0)
	viper.SetDefault("units.default", "d")
	viper.SetDefault("ignore_missing", false)
	viper.SetDefault("effective_levels", []string{})
	viper.SetDefault("float_epsilon", 1e-6)
	viper.SetDefault("history_db", ".critpath/history.db")
	viper.SetDefault("telemetry_dir", ".critpath/telemetry")
	viper.SetDefault("log_dir", ".critpath/logs")
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// WorkCalendar builds the calendar described by c.
func (c CalendarConfig) WorkCalendar() (*calendar.Calendar, error) {
	start, err := calendar.ParseClock(c.DayStart)
	if err != nil {
		return nil, fmt.Errorf("config: calendar.day_start: %w", err)
	}
	end, err := calendar.ParseClock(c.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("config: calendar.day_end: %w", err)
	}
	days, err := calendar.ParseWeekdays(c.Workdays)
	if err != nil {
		return nil, fmt.Errorf("config: calendar.workdays: %w", err)
	}
	cal, err := calendar.New(start, end, days)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cal, nil
}

// Location resolves the configured time zone. Empty means UTC.
func (c CalendarConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: calendar.timezone: %w", err)
	}
	return loc, nil
}

// ProjectUnits converts c to unit conventions, rejecting non-positive
// factors.
func (c UnitsConfig) ProjectUnits() (project.Units, error) {
	u := project.Units{HoursPerDay: c.HoursPerDay, DaysPerWeek: c.DaysPerWeek, DaysPerMonth: c.DaysPerMonth}
	if u.HoursPerDay <= 0 || u.DaysPerWeek <= 0 || u.DaysPerMonth <= 0 {
		return project.Units{}, fmt.Errorf("config: units must be positive, got %g h/d, %g d/w, %g d/mo",
			u.HoursPerDay, u.DaysPerWeek, u.DaysPerMonth)
	}
	return u, nil
}

// DefaultUnit parses the unit assumed for bare numbers.
func (c UnitsConfig) DefaultUnit() (project.Unit, error) {
	u, ok := project.ParseUnit(c.Default)
	if !ok {
		return "", fmt.Errorf("config: unknown default unit %q", c.Default)
	}
	return u, nil
}
