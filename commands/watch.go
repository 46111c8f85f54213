package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/halfmoor/go-screentime-monitor/internal/application/track"
	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/data/sampler"
	"github.com/halfmoor/go-screentime-monitor/internal/data/settings"
	"github.com/halfmoor/go-screentime-monitor/internal/presentation/display"
	"github.com/halfmoor/go-screentime-monitor/internal/presentation/interaction"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

var (
	watchReplayFile  string
	watchReplaySpeed float64
	watchRefreshRate float64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Track usage in real time with a live dashboard",
	Long: `Runs the tracking loop and displays the current session, today's
per-app totals and break suggestions in a live dashboard.

Keys:
  s       snooze a showing break suggestion
  d       dismiss a showing break suggestion
  x       disable suggestions for the current session
  o       toggle simulated screen on/off
  q, Esc  quit

With --replay, samples come from a recorded script instead of a live
source; the dashboard plays the script back at --speed.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchReplayFile, "replay", "",
		"Replay script file (JSON array of {packageName, atMillis})")
	watchCmd.Flags().Float64Var(&watchReplaySpeed, "speed", 1,
		"Replay speed multiplier")
	watchCmd.Flags().Float64Var(&watchRefreshRate, "refresh-per-second", 2,
		"Display refresh rate (0.1-20 Hz)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}
	if watchRefreshRate < 0.1 || watchRefreshRate > 20 {
		return fmt.Errorf("refresh-per-second must be between 0.1 and 20")
	}

	log, err := openEventLog(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	// Watch the config file when one was given so settings changes apply
	// without a restart.
	var src *settings.Source
	if configPath != "" {
		src, err = settings.NewSource(configPath)
		if err != nil {
			return err
		}
	} else {
		src = settings.NewStaticSource(cfg)
	}
	defer src.Close()

	var samples sampler.Source
	if watchReplayFile != "" {
		replay, err := sampler.LoadReplayScript(watchReplayFile)
		if err != nil {
			return err
		}
		// Scripts carry their own epoch; rebasing keeps the tracker's
		// real-clock grace and tick logic in step with playback.
		samples = replay.Paced(watchReplaySpeed).Rebase()
	} else {
		samples = sampler.NewChannelSampler()
	}

	orch, err := track.NewOrchestrator(track.Config{
		Settings: src,
		Log:      log,
		Sampler:  samples,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	// The tracking loop exits cleanly when a replay script runs out.
	trackerDone := make(chan struct{})
	go func() {
		defer close(trackerDone)
		track.RunWithRestart(ctx, "tracker", orch.Run)
	}()

	keyboard, err := interaction.NewKeyboardReader()
	if err != nil {
		util.LogWarnf("watch: keyboard unavailable, running display-only: %v", err)
	} else {
		defer keyboard.Close()
	}

	disp := display.NewTerminalDisplay(display.Config{
		TriggerThresholdMillis: cfg.Suggestion.TriggerThresholdMillis,
		TargetPackages:         cfg.Tracking.TargetPackages,
	})
	disp.EnterAlternateScreen()
	defer disp.ExitAlternateScreen()

	var keys <-chan interaction.KeyEvent
	if keyboard != nil {
		keys = keyboard.Events()
	}

	screenOn := true
	ticker := time.NewTicker(time.Duration(float64(time.Second) / watchRefreshRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trackerDone:
			// Let the final frame land before leaving.
			disp.Render(orch.View())
			time.Sleep(500 * time.Millisecond)
			return nil
		case <-ticker.C:
			disp.Render(orch.View())
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			switch {
			case key.Type == interaction.KeyEscape, key.Key == 'q', key.Key == 3:
				cancel()
				return nil
			case key.Key == 's':
				orch.RequestSuggestionDecision(event.DecisionSnoozed)
			case key.Key == 'd':
				orch.RequestSuggestionDecision(event.DecisionDismissed)
			case key.Key == 'x':
				orch.RequestSuggestionDecision(event.DecisionDisabledForSession)
			case key.Key == 'o':
				screenOn = !screenOn
				orch.ReportScreen(screenOn)
			}
		}
	}
}
