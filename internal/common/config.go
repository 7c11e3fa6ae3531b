package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the orchestrator configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Target      TargetConfig   `toml:"target"`
	Timeouts    TimeoutsConfig `toml:"timeouts"`
	Output      OutputConfig   `toml:"output"`
	Artifact    ArtifactConfig `toml:"artifact"`
	Schedule    ScheduleConfig `toml:"schedule"`
	Notify      NotifyConfig   `toml:"notify"`
	Logging     LoggingConfig  `toml:"logging"`
}

// TargetConfig identifies the application under test. The UI labels are
// configuration because the target application is localized (German BWA
// dashboard by default).
type TargetConfig struct {
	URL          string `toml:"url" validate:"required,url"`
	HeadingText  string `toml:"heading_text" validate:"required"`
	ExportButton string `toml:"export_button" validate:"required"`
	ModalTitle   string `toml:"modal_title" validate:"required"`
}

// TimeoutsConfig holds the bounded-wait budgets as duration strings
// (e.g. "5s"), parsed on access.
type TimeoutsConfig struct {
	UIWait       string `toml:"ui_wait"`       // element visibility waits
	DownloadWait string `toml:"download_wait"` // download event waits
	SettleShort  string `toml:"settle_short"`  // settle after toggle/format changes
	SettleLong   string `toml:"settle_long"`   // settle after date-range changes
	ExportBudget string `toml:"export_budget"` // max acceptable export duration
}

type OutputConfig struct {
	WorkDir string `toml:"work_dir"` // empty = temp dir per run
}

// ArtifactConfig configures the downloaded-file validator and the
// estimated-count phrases the date-range step accepts.
type ArtifactConfig struct {
	RequiredColumns []string `toml:"required_columns" validate:"min=1"`
	CountPhrases    []string `toml:"count_phrases" validate:"min=1"`
}

type ScheduleConfig struct {
	Cron string `toml:"cron"` // optional cron expression for repeated runs
}

type NotifyConfig struct {
	URL           string `toml:"url"` // shoutrrr URL, empty = disabled
	OnFailureOnly bool   `toml:"on_failure_only"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the default configuration, matching the
// target application this suite was originally written against.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Target: TargetConfig{
			URL:          "http://localhost:5001",
			HeadingText:  "BWA Dashboard",
			ExportButton: "Daten exportieren",
			ModalTitle:   "BWA-Daten exportieren",
		},
		Timeouts: TimeoutsConfig{
			UIWait:       "5s",
			DownloadWait: "30s",
			SettleShort:  "1s",
			SettleLong:   "2s",
			ExportBudget: "15s",
		},
		Output: OutputConfig{
			WorkDir: "",
		},
		Artifact: ArtifactConfig{
			RequiredColumns: []string{"Jahr", "Monat", "Kategorie", "Typ", "Betrag", "Gruppenkategorie"},
			CountPhrases:    []string{"Datensätze", "wird berechnet"},
		},
		Notify: NotifyConfig{
			URL:           "",
			OnFailureOnly: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("EXPORTCHECK_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if url := os.Getenv("EXPORTCHECK_TARGET_URL"); url != "" {
		config.Target.URL = url
	}
	if workDir := os.Getenv("EXPORTCHECK_WORK_DIR"); workDir != "" {
		config.Output.WorkDir = workDir
	}
	if schedule := os.Getenv("EXPORTCHECK_SCHEDULE"); schedule != "" {
		config.Schedule.Cron = schedule
	}
	if notifyURL := os.Getenv("EXPORTCHECK_NOTIFY_URL"); notifyURL != "" {
		config.Notify.URL = notifyURL
	}
	if onFailure := os.Getenv("EXPORTCHECK_NOTIFY_ON_FAILURE_ONLY"); onFailure != "" {
		if b, err := strconv.ParseBool(onFailure); err == nil {
			config.Notify.OnFailureOnly = b
		}
	}

	if level := os.Getenv("EXPORTCHECK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("EXPORTCHECK_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, targetURL, workDir, schedule string) {
	if targetURL != "" {
		config.Target.URL = targetURL
	}
	if workDir != "" {
		config.Output.WorkDir = workDir
	}
	if schedule != "" {
		config.Schedule.Cron = schedule
	}
}

// Validate checks structural constraints, duration syntax, and the optional
// cron expression. Returns the first problem found.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"timeouts.ui_wait":       c.Timeouts.UIWait,
		"timeouts.download_wait": c.Timeouts.DownloadWait,
		"timeouts.settle_short":  c.Timeouts.SettleShort,
		"timeouts.settle_long":   c.Timeouts.SettleLong,
		"timeouts.export_budget": c.Timeouts.ExportBudget,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", c.Schedule.Cron, err)
		}
	}

	return nil
}

// parseDuration parses a duration string, falling back when the value is
// malformed. Validate rejects bad values at load time; the fallback only
// protects hand-constructed configs.
func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// UIWaitDuration returns the bounded wait for element visibility checks.
func (t TimeoutsConfig) UIWaitDuration() time.Duration {
	return parseDuration(t.UIWait, 5*time.Second)
}

// DownloadWaitDuration returns the bounded wait for download events.
func (t TimeoutsConfig) DownloadWaitDuration() time.Duration {
	return parseDuration(t.DownloadWait, 30*time.Second)
}

// SettleShortDuration returns the settle interval after toggle changes.
func (t TimeoutsConfig) SettleShortDuration() time.Duration {
	return parseDuration(t.SettleShort, 1*time.Second)
}

// SettleLongDuration returns the settle interval after date-range changes.
func (t TimeoutsConfig) SettleLongDuration() time.Duration {
	return parseDuration(t.SettleLong, 2*time.Second)
}

// ExportBudgetDuration returns the maximum acceptable export duration.
func (t TimeoutsConfig) ExportBudgetDuration() time.Duration {
	return parseDuration(t.ExportBudget, 15*time.Second)
}
