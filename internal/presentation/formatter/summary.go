package formatter

import (
	"fmt"
	"io"

	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

type SummaryFormatter struct {
	w io.Writer
}

func NewSummaryFormatter(w io.Writer) *SummaryFormatter {
	return &SummaryFormatter{w: w}
}

func (f *SummaryFormatter) Format(r *Report) error {
	if _, err := fmt.Fprintln(f.w, util.FormatHeaderTitle("Screen Time "+r.Date)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(f.w, util.FormatSectionSeparator()); err != nil {
		return err
	}

	for _, u := range r.Usage {
		var pct float64
		if r.TotalMillis > 0 {
			pct = float64(u.DurationMillis) / float64(r.TotalMillis) * 100
		}
		bar := util.CreateProgressBar(pct, 22)
		if _, err := fmt.Fprintf(f.w, "%-32s %s %8s (%d session(s))\n",
			util.TruncateToWidth(u.Package, 32), bar, u.Duration, u.Sessions); err != nil {
			return err
		}
	}

	active := 0
	for _, s := range r.Sessions {
		if s.Active {
			active++
		}
	}
	if _, err := fmt.Fprintln(f.w, util.FormatSectionSeparator()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f.w, "Total %s across %d session(s), %d active\n",
		r.Total, len(r.Sessions), active)
	return err
}
