package util

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal control sequences
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorBold   = "\033[1m"

	ClearLine           = "\033[2K" // Clear entire line
	ClearLineFromCursor = "\033[0K" // Clear from cursor to end of line
	CarriageReturn      = "\r"
	HideCursor          = "\033[?25l"
	ShowCursor          = "\033[?25h"
)

// GetDisplayWidth calculates the actual display width of a string, accounting for emojis
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// TruncateToWidth shortens text to fit the given display width, ending
// with an ellipsis when it had to cut.
func TruncateToWidth(text string, width int) string {
	if GetDisplayWidth(text) <= width {
		return text
	}
	if width <= 1 {
		return strings.Repeat(".", width)
	}
	return runewidth.Truncate(text, width-1, "") + "…"
}

// CreateProgressBar creates a progress bar with the given percentage and width
func CreateProgressBar(percentage float64, width int) string {
	if width < 4 {
		width = 4
	}
	barWidth := width - 2
	filled := int((percentage / 100) * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// FormatHeaderTitle formats section titles (Cyan + Bold)
func FormatHeaderTitle(title string) string {
	return fmt.Sprintf("%s%s%s%s", ColorBold, ColorCyan, title, ColorReset)
}

// FormatSectionSeparator creates a visual separator line
func FormatSectionSeparator() string {
	return strings.Repeat("─", 64)
}
