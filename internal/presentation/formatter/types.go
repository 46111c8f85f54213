// Package formatter renders session and usage reports in the supported
// output formats.
package formatter

import (
	"fmt"
	"io"
)

// SessionRow is one projected session prepared for output.
type SessionRow struct {
	Package        string `json:"package"`
	Start          string `json:"start"`
	End            string `json:"end"` // empty while the session is still open
	DurationMillis int64  `json:"durationMillis"`
	Duration       string `json:"duration"`
	Pauses         int    `json:"pauses"`
	Suggestions    int    `json:"suggestions"`
	Active         bool   `json:"active"`
}

// UsageRow is one package's accumulated usage for a day.
type UsageRow struct {
	Package        string `json:"package"`
	DurationMillis int64  `json:"durationMillis"`
	Duration       string `json:"duration"`
	Sessions       int    `json:"sessions"`
}

// Report bundles everything the sessions and today commands print.
type Report struct {
	Date        string       `json:"date"`
	Sessions    []SessionRow `json:"sessions,omitempty"`
	Usage       []UsageRow   `json:"usage,omitempty"`
	TotalMillis int64        `json:"totalMillis"`
	Total       string       `json:"total"`
}

// Formatter renders a report to its writer.
type Formatter interface {
	Format(r *Report) error
}

// New returns the formatter for the named output format.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "table", "":
		return NewTableFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "summary":
		return NewSummaryFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (supported: table, json, csv, summary)", format)
	}
}
