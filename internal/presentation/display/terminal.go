// Package display renders the live tracking dashboard.
package display

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/halfmoor/go-screentime-monitor/internal/application/track"
	"github.com/halfmoor/go-screentime-monitor/internal/core/overlay"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// Config carries the static display parameters.
type Config struct {
	// TriggerThresholdMillis scales the progress bar toward the
	// break-suggestion prompt.
	TriggerThresholdMillis int64
	TargetPackages         []string
}

// TerminalDisplay draws the dashboard into the alternate screen buffer,
// repainting only the lines that changed since the previous frame.
type TerminalDisplay struct {
	config            Config
	inAlternateScreen bool
	previousScreen    []string
	isFirstRender     bool
}

func NewTerminalDisplay(config Config) *TerminalDisplay {
	return &TerminalDisplay{
		config:        config,
		isFirstRender: true,
	}
}

// EnterAlternateScreen switches to alternate screen buffer
func (td *TerminalDisplay) EnterAlternateScreen() {
	if td.inAlternateScreen {
		return
	}
	fmt.Print("\033[?1049h")
	fmt.Print("\033[2J")
	fmt.Print("\033[H")
	fmt.Print(util.HideCursor)
	td.inAlternateScreen = true
	td.isFirstRender = true
}

// ExitAlternateScreen returns to normal screen buffer
func (td *TerminalDisplay) ExitAlternateScreen() {
	if !td.inAlternateScreen {
		return
	}
	fmt.Print("\033[2J")
	fmt.Print("\033[H")
	fmt.Print(util.ShowCursor)
	fmt.Print("\033[?1049l")
	td.inAlternateScreen = false
}

// Render draws the current view. Unchanged lines are skipped so the
// terminal does not flicker at high refresh rates.
func (td *TerminalDisplay) Render(v track.ViewState) {
	lines := td.buildLines(v)

	if td.isFirstRender || len(lines) != len(td.previousScreen) {
		fmt.Print("\033[2J\033[H")
		for _, line := range lines {
			fmt.Print(line, "\r\n")
		}
		td.previousScreen = lines
		td.isFirstRender = false
		return
	}

	for i, line := range lines {
		if line == td.previousScreen[i] {
			continue
		}
		// Cursor rows are 1-based.
		fmt.Printf("\033[%d;1H%s%s", i+1, util.ClearLine, line)
	}
	fmt.Printf("\033[%d;1H", len(lines)+1)
	td.previousScreen = lines
}

func (td *TerminalDisplay) buildLines(v track.ViewState) []string {
	width := td.maxWidth()
	sep := strings.Repeat("─", width)

	lines := []string{
		util.FormatHeaderTitle("Screen Time Monitor"),
		sep,
		td.stateLine(v),
		td.currentLine(v, width),
		"",
		util.FormatHeaderTitle("Today"),
	}

	if len(v.TodayPerPackage) == 0 {
		lines = append(lines, "  no usage recorded yet")
	} else {
		for _, pkg := range td.config.TargetPackages {
			ms, ok := v.TodayPerPackage[pkg]
			if !ok {
				continue
			}
			marker := " "
			if pkg == v.ActivePackage {
				marker = util.ColorGreen + "▶" + util.ColorReset
			}
			lines = append(lines, fmt.Sprintf("  %s %-32s %s",
				marker, util.TruncateToWidth(pkg, 32), util.FormatClock(ms)))
		}
	}

	lines = append(lines,
		sep,
		fmt.Sprintf("All targets today: %s%s%s",
			util.ColorBold, util.FormatClock(v.TodayAllTargetsMillis), util.ColorReset),
	)

	if v.SuggestionShowing {
		lines = append(lines,
			"",
			util.ColorYellow+"Time for a break?"+util.ColorReset+"  [s]nooze  [d]ismiss  [x] off for this session",
		)
	} else {
		lines = append(lines, "", "[q]uit")
	}
	return lines
}

func (td *TerminalDisplay) stateLine(v track.ViewState) string {
	var color string
	switch v.OverlayState.Kind {
	case overlay.KindTracking:
		color = util.ColorGreen
	case overlay.KindSuggesting, overlay.KindPaused:
		color = util.ColorYellow
	case overlay.KindDisabled:
		color = util.ColorRed
	default:
		color = util.ColorCyan
	}
	return fmt.Sprintf("State: %s%s%s", color, v.OverlayState.Kind, util.ColorReset)
}

func (td *TerminalDisplay) currentLine(v track.ViewState, width int) string {
	pkg := v.OverlayState.Pkg
	if pkg == "" {
		if v.ActivePackage == "" {
			return "Foreground: (none)"
		}
		return "Foreground: " + util.TruncateToWidth(v.ActivePackage, width-12)
	}

	var bar string
	if td.config.TriggerThresholdMillis > 0 {
		pct := float64(v.ElapsedMillis) / float64(td.config.TriggerThresholdMillis) * 100
		if pct > 100 {
			pct = 100
		}
		bar = " " + util.CreateProgressBar(pct, 22)
	}
	return fmt.Sprintf("Session: %s  %s%s",
		util.TruncateToWidth(pkg, 32), util.FormatClock(v.ElapsedMillis), bar)
}

func (td *TerminalDisplay) maxWidth() int {
	termWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || termWidth < 40 {
		return 64
	}
	if termWidth > 100 {
		return 100
	}
	return termWidth - 2
}
