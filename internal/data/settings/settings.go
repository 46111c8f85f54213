// Package settings loads and watches the tracker configuration.
package settings

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds the complete tracker configuration.
type Settings struct {
	Tracking   TrackingSettings   `mapstructure:"tracking"`
	Overlay    OverlaySettings    `mapstructure:"overlay"`
	Suggestion SuggestionSettings `mapstructure:"suggestion"`
	Storage    StorageSettings    `mapstructure:"storage"`
	Logging    LoggingSettings    `mapstructure:"logging"`
	Timezone   string             `mapstructure:"timezone"`
}

// TrackingSettings drive session detection.
type TrackingSettings struct {
	TargetPackages     []string `mapstructure:"target_packages"`
	GracePeriodMillis  int64    `mapstructure:"grace_period_millis"`
	PollIntervalMillis int64    `mapstructure:"poll_interval_millis"`
}

// OverlaySettings control the elapsed-time overlay.
type OverlaySettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// SuggestionSettings control the take-a-break prompt.
type SuggestionSettings struct {
	TriggerThresholdMillis int64 `mapstructure:"trigger_threshold_millis"`
	StableThresholdMillis  int64 `mapstructure:"stable_threshold_millis"`
	CooldownMillis         int64 `mapstructure:"cooldown_millis"`
}

// StorageSettings locate the event database.
type StorageSettings struct {
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingSettings define logging behavior.
type LoggingSettings struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables. A
// missing file is not an error; defaults and env vars apply.
func Load(configPath string) (*Settings, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("SCREENTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found, use defaults and environment variables
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	normalize(&s)

	return &s, nil
}

// Defaults returns a Settings with every field at its default value,
// equivalent to Load with no file and no environment overrides.
func Defaults() *Settings {
	return &Settings{
		Tracking: TrackingSettings{
			TargetPackages:     []string{},
			GracePeriodMillis:  5000,
			PollIntervalMillis: 1000,
		},
		Overlay: OverlaySettings{Enabled: true},
		Suggestion: SuggestionSettings{
			TriggerThresholdMillis: 600000,
			StableThresholdMillis:  10000,
			CooldownMillis:         300000,
		},
		Storage:  StorageSettings{DatabasePath: defaultDatabasePath()},
		Logging:  LoggingSettings{Level: "info"},
		Timezone: "Local",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracking.target_packages", []string{})
	v.SetDefault("tracking.grace_period_millis", 5000)
	v.SetDefault("tracking.poll_interval_millis", 1000)

	v.SetDefault("overlay.enabled", true)

	v.SetDefault("suggestion.trigger_threshold_millis", 600000)
	v.SetDefault("suggestion.stable_threshold_millis", 10000)
	v.SetDefault("suggestion.cooldown_millis", 300000)

	v.SetDefault("storage.database_path", defaultDatabasePath())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.debug", false)

	v.SetDefault("timezone", "Local")
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "screentime.db"
	}
	return home + "/.screentime/events.db"
}

func validate(s *Settings) error {
	if s.Tracking.GracePeriodMillis < 0 {
		return fmt.Errorf("tracking.grace_period_millis must be >= 0, got %d", s.Tracking.GracePeriodMillis)
	}
	if s.Tracking.PollIntervalMillis <= 0 {
		return fmt.Errorf("tracking.poll_interval_millis must be > 0, got %d", s.Tracking.PollIntervalMillis)
	}
	if s.Suggestion.TriggerThresholdMillis < 0 || s.Suggestion.StableThresholdMillis < 0 || s.Suggestion.CooldownMillis < 0 {
		return fmt.Errorf("suggestion thresholds must be >= 0")
	}
	if s.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path must not be empty")
	}
	return nil
}

// normalize deduplicates and sorts the target list so comparisons are
// order-independent.
func normalize(s *Settings) {
	seen := make(map[string]bool, len(s.Tracking.TargetPackages))
	targets := s.Tracking.TargetPackages[:0]
	for _, pkg := range s.Tracking.TargetPackages {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" || seen[pkg] {
			continue
		}
		seen[pkg] = true
		targets = append(targets, pkg)
	}
	sort.Strings(targets)
	s.Tracking.TargetPackages = targets
}

// SameTargets reports whether two settings have the same target set.
// Both sides are normalized at load, so slice equality suffices.
func SameTargets(a, b *Settings) bool {
	if len(a.Tracking.TargetPackages) != len(b.Tracking.TargetPackages) {
		return false
	}
	for i := range a.Tracking.TargetPackages {
		if a.Tracking.TargetPackages[i] != b.Tracking.TargetPackages[i] {
			return false
		}
	}
	return true
}
