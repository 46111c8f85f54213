package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/halfmoor/go-screentime-monitor/internal/core/constants"
	"github.com/halfmoor/go-screentime-monitor/internal/core/session"
	"github.com/halfmoor/go-screentime-monitor/internal/core/usage"
	"github.com/halfmoor/go-screentime-monitor/internal/data/settings"
	"github.com/halfmoor/go-screentime-monitor/internal/presentation/formatter"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

var todayOutputFormat string

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's usage totals",
	Long: `Reprojects today's sessions from the event log and prints per-app
totals. A session that started before midnight only counts the part
that falls inside today.`,
	RunE: runTodayCmd,
}

func init() {
	rootCmd.AddCommand(todayCmd)
	todayCmd.Flags().StringVarP(&todayOutputFormat, "output", "o", "table",
		"Output format (table, json, csv, summary)")
}

func runTodayCmd(cmd *cobra.Command, args []string) error {
	outputFormat = todayOutputFormat
	return runToday(cmd, args)
}

func runToday(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}
	log, err := openEventLog(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	tp := util.GetTimeProvider()
	now := tp.NowMillis()
	dayStart := tp.DayStartMillis(now)

	report, err := buildWindowReport(cmd.Context(), log, cfg, dayStart, now)
	if err != nil {
		return err
	}

	f, err := formatter.New(outputFormat, os.Stdout)
	if err != nil {
		return err
	}
	return f.Format(report)
}

// buildWindowReport projects sessions over [startMillis, endMillis) and
// converts them into a report. The query reaches back before the window
// so a session already running at the window start is reconstructed
// whole, then clipped.
func buildWindowReport(ctx context.Context, log usage.EventQuerier, cfg *settings.Settings, startMillis, endMillis int64) (*formatter.Report, error) {
	events, err := log.Query(ctx, startMillis-constants.SnapshotSeedLookbackMillis, endMillis)
	if err != nil {
		return nil, err
	}

	sessions := session.Project(session.ProjectionInput{
		Events:            events,
		TargetPackages:    cfg.Tracking.TargetPackages,
		GracePeriodMillis: cfg.Tracking.GracePeriodMillis,
		NowMillis:         endMillis,
	})
	return formatter.BuildReport(sessions, startMillis, endMillis), nil
}
