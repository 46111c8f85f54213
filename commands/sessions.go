package commands

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/halfmoor/go-screentime-monitor/internal/presentation/formatter"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

var (
	sessionsDuration     string
	sessionsOutputFormat string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	Long: `Reprojects sessions from the event log over a look-back window and
lists them with start, end, duration, pause count and suggestion count.`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVarP(&sessionsDuration, "duration", "d", "24h",
		"Look-back window (e.g., 12h, 7d, 2w, 1d12h)")
	sessionsCmd.Flags().StringVarP(&sessionsOutputFormat, "output", "o", "table",
		"Output format (table, json, csv, summary)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	lookback, err := parseLookback(sessionsDuration)
	if err != nil {
		return err
	}

	log, err := openEventLog(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	now := util.GetTimeProvider().NowMillis()
	report, err := buildWindowReport(cmd.Context(), log, cfg, now-lookback.Milliseconds(), now)
	if err != nil {
		return err
	}

	f, err := formatter.New(sessionsOutputFormat, os.Stdout)
	if err != nil {
		return err
	}
	return f.Format(report)
}

var lookbackPattern = regexp.MustCompile(`^(\d+)([wdhm])`)

// parseLookback parses durations like "12h", "7d", "2w" and compounds
// like "1d12h".
func parseLookback(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	var total time.Duration
	rest := s
	for rest != "" {
		m := lookbackPattern.FindStringSubmatch(rest)
		if m == nil {
			return 0, fmt.Errorf("invalid duration %q (use forms like 12h, 7d, 2w, 1d12h)", s)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		switch m[2] {
		case "w":
			total += time.Duration(n) * 7 * 24 * time.Hour
		case "d":
			total += time.Duration(n) * 24 * time.Hour
		case "h":
			total += time.Duration(n) * time.Hour
		case "m":
			total += time.Duration(n) * time.Minute
		}
		rest = rest[len(m[0]):]
	}
	return total, nil
}
