package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halfmoor/go-screentime-monitor/internal/data/eventlog"
	"github.com/halfmoor/go-screentime-monitor/internal/data/settings"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

var (
	// Logging related
	debug bool

	// Configuration
	configPath string

	// Output related
	outputFormat string
	timezone     string

	rootCmd = &cobra.Command{
		Use:   "screentime",
		Short: "Foreground app usage tracking tool",
		Long: `screentime tracks how long target applications stay in the foreground,
groups that time into sessions with a grace period for brief switches away,
and keeps daily per-app totals.

Examples:
  screentime                        # Show today's usage
  screentime watch                  # Live tracking dashboard
  screentime sessions --duration 12h # List sessions from the last 12 hours
  screentime today -o json          # Today's totals as JSON
  screentime reset                  # Clear the recorded event history`,
		RunE: runToday,
	}
)

const defaultLogFile = "~/.screentime/logs/app.log"

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file path (default: built-in defaults plus SCREENTIME_* env vars)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone setting (e.g., Asia/Shanghai, UTC); overrides the config file")

	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", "table",
		"Output format (table, json, csv, summary)")
}

func Execute() error {
	return rootCmd.Execute()
}

// initRuntime loads settings and initializes logging and the time
// provider. Every command calls it first.
func initRuntime() (*settings.Settings, error) {
	cfg, err := settings.Load(configPath)
	if err != nil {
		return nil, err
	}

	logLevel := cfg.Logging.Level
	if debug {
		logLevel = "debug"
	}
	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = expandPath(defaultLogFile)
	} else {
		logFile = expandPath(logFile)
	}
	if err := ensureDir(filepath.Dir(logFile)); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	util.InitLogger(logLevel, logFile, debug)

	tz := cfg.Timezone
	if timezone != "" {
		tz = timezone
	}
	if err := util.InitializeTimeProvider(tz); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return cfg, nil
}

func openEventLog(cfg *settings.Settings) (eventlog.Log, error) {
	return eventlog.OpenSQLite(expandPath(cfg.Storage.DatabasePath))
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
