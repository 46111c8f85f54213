package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
)

type CSVFormatter struct {
	w io.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{w: w}
}

func (f *CSVFormatter) Format(r *Report) error {
	w := csv.NewWriter(f.w)
	defer w.Flush()

	if len(r.Sessions) > 0 {
		if err := w.Write([]string{"package", "start", "end", "duration_millis", "pauses", "prompts", "active"}); err != nil {
			return err
		}
		for _, s := range r.Sessions {
			record := []string{
				s.Package, s.Start, s.End,
				fmt.Sprintf("%d", s.DurationMillis),
				fmt.Sprintf("%d", s.Pauses),
				fmt.Sprintf("%d", s.Suggestions),
				fmt.Sprintf("%t", s.Active),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}

	if len(r.Usage) > 0 {
		if err := w.Write([]string{"package", "duration_millis", "sessions"}); err != nil {
			return err
		}
		for _, u := range r.Usage {
			record := []string{
				u.Package,
				fmt.Sprintf("%d", u.DurationMillis),
				fmt.Sprintf("%d", u.Sessions),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}
