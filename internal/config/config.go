package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/hourwatch/internal/timeline"
	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// Config is the top-level hourwatch configuration.
type Config struct {
	Inputs         Inputs     `mapstructure:"inputs"`
	IdentityMarker string     `mapstructure:"identity_marker"`
	CutoffDate     string     `mapstructure:"cutoff_date"`
	Timezone       string     `mapstructure:"timezone"`
	TargetHours    float64    `mapstructure:"target_hours"`
	WorkWindow     WorkWindow `mapstructure:"work_window"`
	Session        Session    `mapstructure:"session"`
	Breaks         Breaks     `mapstructure:"breaks"`
	Conflicts      Conflicts  `mapstructure:"conflicts"`
	Slots          []Slot     `mapstructure:"slots"`
	Categories     []Category `mapstructure:"categories"`

	// ScanPaths are the directories whose child git repositories the
	// export command reads commits from.
	ScanPaths []string `mapstructure:"scan_paths"`
}

// Inputs locates the input files and the output directory.
type Inputs struct {
	Events     string `mapstructure:"events"`
	CommitsDir string `mapstructure:"commits_dir"`
	Calendar   string `mapstructure:"calendar"`
	OutputDir  string `mapstructure:"output_dir"`
}

// WorkWindow bounds the clock times ("HH:MM") at which a session may open.
type WorkWindow struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// Session defines the session floor and ceiling.
type Session struct {
	MinMinutes float64 `mapstructure:"min_minutes"`
	MaxHours   float64 `mapstructure:"max_hours"`
}

// Breaks defines the break deduction.
type Breaks struct {
	ThresholdHours   float64 `mapstructure:"threshold_hours"`
	AllowanceMinutes float64 `mapstructure:"allowance_minutes"`
}

// Conflicts defines the SHORT/LONG boundary.
type Conflicts struct {
	ShortHours float64 `mapstructure:"short_hours"`
}

// Slot is a synthetic session template.
type Slot struct {
	Name          string  `mapstructure:"name"`
	Start         string  `mapstructure:"start"`
	End           string  `mapstructure:"end"`
	DurationHours float64 `mapstructure:"duration_hours"`
	WorkHours     float64 `mapstructure:"work_hours"`
	UntilHour     int     `mapstructure:"until_hour"`
}

// Category is one categorizer rule. Order in the list is priority order.
type Category struct {
	Name          string   `mapstructure:"name"`
	Keywords      []string `mapstructure:"keywords"`
	Justification string   `mapstructure:"justification"`
}

// ErrInvalidConfig is wrapped by every ConfigurationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigurationError reports a missing or out-of-range parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidConfig).
func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfig
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. It does not validate.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("HOURWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.Slots) == 0 {
		cfg.Slots = append([]Slot(nil), DefaultSlots...)
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = defaultCategories()
	}

	cfg.Inputs.Events = expandPath(cfg.Inputs.Events)
	cfg.Inputs.CommitsDir = expandPath(cfg.Inputs.CommitsDir)
	cfg.Inputs.Calendar = expandPath(cfg.Inputs.Calendar)
	cfg.Inputs.OutputDir = expandPath(cfg.Inputs.OutputDir)
	for i, p := range cfg.ScanPaths {
		cfg.ScanPaths[i] = expandPath(p)
	}

	return &cfg, nil
}

// Default returns a Config populated only from defaults.
func Default() *Config {
	return &Config{
		Inputs:         DefaultInputs,
		IdentityMarker: DefaultIdentityMarker,
		CutoffDate:     DefaultCutoffDate,
		Timezone:       DefaultTimezone,
		TargetHours:    DefaultTargetHours,
		WorkWindow:     DefaultWorkWindow,
		Session:        DefaultSession,
		Breaks:         DefaultBreaks,
		Conflicts:      DefaultConflicts,
		Slots:          append([]Slot(nil), DefaultSlots...),
		Categories:     defaultCategories(),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("inputs.events", DefaultInputs.Events)
	v.SetDefault("inputs.commits_dir", DefaultInputs.CommitsDir)
	v.SetDefault("inputs.calendar", DefaultInputs.Calendar)
	v.SetDefault("inputs.output_dir", DefaultInputs.OutputDir)
	v.SetDefault("identity_marker", DefaultIdentityMarker)
	v.SetDefault("cutoff_date", DefaultCutoffDate)
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("target_hours", DefaultTargetHours)
	v.SetDefault("work_window.start", DefaultWorkWindow.Start)
	v.SetDefault("work_window.end", DefaultWorkWindow.End)
	v.SetDefault("session.min_minutes", DefaultSession.MinMinutes)
	v.SetDefault("session.max_hours", DefaultSession.MaxHours)
	v.SetDefault("breaks.threshold_hours", DefaultBreaks.ThresholdHours)
	v.SetDefault("breaks.allowance_minutes", DefaultBreaks.AllowanceMinutes)
	v.SetDefault("conflicts.short_hours", DefaultConflicts.ShortHours)
}

func defaultCategories() []Category {
	out := make([]Category, 0, len(timeline.DefaultRules))
	for _, r := range timeline.DefaultRules {
		out = append(out, Category{
			Name:          string(r.Category),
			Keywords:      append([]string(nil), r.Keywords...),
			Justification: r.Justification,
		})
	}
	return out
}

// Validate checks every parameter and returns the first problem as a
// *ConfigurationError.
func (c *Config) Validate() error {
	if c.TargetHours <= 0 {
		return &ConfigurationError{Field: "target_hours", Reason: fmt.Sprintf("must be positive, got %v", c.TargetHours)}
	}
	if strings.TrimSpace(c.IdentityMarker) == "" {
		return &ConfigurationError{Field: "identity_marker", Reason: "is required"}
	}
	if _, err := c.Cutoff(); err != nil {
		return &ConfigurationError{Field: "cutoff_date", Reason: fmt.Sprintf("must be YYYY-MM-DD, got %q", c.CutoffDate)}
	}
	if _, err := c.Location(); err != nil {
		return &ConfigurationError{Field: "timezone", Reason: err.Error()}
	}
	if !validClock(c.WorkWindow.Start) {
		return &ConfigurationError{Field: "work_window.start", Reason: fmt.Sprintf("must be HH:MM, got %q", c.WorkWindow.Start)}
	}
	if !validClock(c.WorkWindow.End) {
		return &ConfigurationError{Field: "work_window.end", Reason: fmt.Sprintf("must be HH:MM, got %q", c.WorkWindow.End)}
	}
	if c.WorkWindow.Start >= c.WorkWindow.End {
		return &ConfigurationError{Field: "work_window", Reason: "start must be before end"}
	}
	if c.Session.MinMinutes <= 0 {
		return &ConfigurationError{Field: "session.min_minutes", Reason: "must be positive"}
	}
	if c.Session.MaxHours*60 <= c.Session.MinMinutes {
		return &ConfigurationError{Field: "session.max_hours", Reason: "must exceed session.min_minutes"}
	}
	if c.Breaks.ThresholdHours < 0 || c.Breaks.AllowanceMinutes < 0 {
		return &ConfigurationError{Field: "breaks", Reason: "durations must not be negative"}
	}
	if c.Breaks.AllowanceMinutes/60 > c.Breaks.ThresholdHours {
		return &ConfigurationError{Field: "breaks.allowance_minutes", Reason: "must not exceed breaks.threshold_hours"}
	}
	if c.Conflicts.ShortHours <= 0 {
		return &ConfigurationError{Field: "conflicts.short_hours", Reason: "must be positive"}
	}
	if err := c.validateSlots(); err != nil {
		return err
	}
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" || len(cat.Keywords) == 0 {
			return &ConfigurationError{Field: fmt.Sprintf("categories[%d]", i), Reason: "needs a name and at least one keyword"}
		}
	}
	return nil
}

func (c *Config) validateSlots() error {
	if len(c.Slots) == 0 {
		return &ConfigurationError{Field: "slots", Reason: "at least one template is required"}
	}
	prevUntil := 0
	for i, s := range c.Slots {
		field := fmt.Sprintf("slots[%d]", i)
		switch {
		case s.Name == "":
			return &ConfigurationError{Field: field, Reason: "name is required"}
		case !validClock(s.Start) || !validClock(s.End) || s.Start >= s.End:
			return &ConfigurationError{Field: field, Reason: "start and end must be HH:MM with start before end"}
		case s.DurationHours <= 0 || s.WorkHours < 0 || s.WorkHours > s.DurationHours:
			return &ConfigurationError{Field: field, Reason: "need 0 <= work_hours <= duration_hours and duration_hours > 0"}
		case s.UntilHour <= prevUntil || s.UntilHour > 24:
			return &ConfigurationError{Field: field, Reason: "until_hour must increase and be at most 24"}
		}
		prevUntil = s.UntilHour
	}
	return nil
}

func validClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// Cutoff returns the reporting-period start as a TimePoint at midnight.
func (c *Config) Cutoff() (timepoint.TimePoint, error) {
	if _, err := time.Parse(timepoint.DateLayout, c.CutoffDate); err != nil {
		return "", err
	}
	return timepoint.Parse(c.CutoffDate + " 00:00:00")
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Timezone)
	}
}

// BreakPolicy returns the break deduction as a timeline.BreakPolicy.
func (c *Config) BreakPolicy() timeline.BreakPolicy {
	return timeline.BreakPolicy{
		Threshold: hours(c.Breaks.ThresholdHours),
		Allowance: minutes(c.Breaks.AllowanceMinutes),
	}
}

// DetectorOptions returns the session detector settings.
func (c *Config) DetectorOptions() timeline.DetectorOptions {
	return timeline.DetectorOptions{
		WorkStart:  c.WorkWindow.Start,
		WorkEnd:    c.WorkWindow.End,
		MinSession: minutes(c.Session.MinMinutes),
		MaxSession: hours(c.Session.MaxHours),
		Breaks:     c.BreakPolicy(),
	}
}

// ConflictOptions returns the conflict resolver settings.
func (c *Config) ConflictOptions() timeline.ConflictOptions {
	return timeline.ConflictOptions{
		ShortThreshold: hours(c.Conflicts.ShortHours),
		Breaks:         c.BreakPolicy(),
	}
}

// SlotTemplates returns the synthetic session templates.
func (c *Config) SlotTemplates() []timeline.SlotTemplate {
	out := make([]timeline.SlotTemplate, len(c.Slots))
	for i, s := range c.Slots {
		out[i] = timeline.SlotTemplate{
			Name:          s.Name,
			Start:         s.Start,
			End:           s.End,
			DurationHours: s.DurationHours,
			WorkHours:     s.WorkHours,
			UntilHour:     s.UntilHour,
		}
	}
	return out
}

// CategoryRules returns the categorizer rule table.
func (c *Config) CategoryRules() []timeline.CategoryRule {
	out := make([]timeline.CategoryRule, len(c.Categories))
	for i, cat := range c.Categories {
		out[i] = timeline.CategoryRule{
			Category:      timeline.Category(strings.ToUpper(cat.Name)),
			Keywords:      cat.Keywords,
			Justification: cat.Justification,
		}
	}
	return out
}

// DBPath returns the full path to the SQLite database.
func DBPath() string {
	return filepath.Join(expandPath(DefaultConfigDir), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
