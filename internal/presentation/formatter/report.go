package formatter

import (
	"sort"

	"github.com/halfmoor/go-screentime-monitor/internal/core/session"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

const clockLayout = "15:04:05"

// BuildReport converts projected sessions into a printable report for
// the window [startMillis, endMillis). Durations only count active time
// inside the window, so a session straddling the window start is
// clipped rather than dropped; sessions with no active time inside the
// window are omitted entirely.
func BuildReport(sessions []*session.Session, startMillis, endMillis int64) *Report {
	tp := util.GetTimeProvider()
	r := &Report{Date: tp.FormatMillis(endMillis, "2006-01-02")}

	perPkg := make(map[string]*UsageRow)
	for _, s := range sessions {
		segments := session.BuildActiveSegments(s.Events, endMillis)
		dur := session.ClipSegments(segments, startMillis, endMillis)
		if dur == 0 {
			continue
		}

		row := SessionRow{
			Package:        s.PackageName,
			Start:          tp.FormatMillis(s.StartTime(), clockLayout),
			DurationMillis: dur,
			Duration:       util.FormatDurationMillis(dur),
			Active:         s.IsOpen(),
		}
		if !s.IsOpen() {
			row.End = tp.FormatMillis(s.EndTime(), clockLayout)
		}
		for _, ev := range s.Events {
			switch ev.Kind {
			case session.EventPause:
				row.Pauses++
			case session.EventSuggestionShown:
				row.Suggestions++
			}
		}
		r.Sessions = append(r.Sessions, row)

		u := perPkg[s.PackageName]
		if u == nil {
			u = &UsageRow{Package: s.PackageName}
			perPkg[s.PackageName] = u
		}
		u.DurationMillis += dur
		u.Sessions++
		r.TotalMillis += dur
	}

	for _, u := range perPkg {
		u.Duration = util.FormatDurationMillis(u.DurationMillis)
		r.Usage = append(r.Usage, *u)
	}
	sort.Slice(r.Usage, func(i, j int) bool {
		if r.Usage[i].DurationMillis != r.Usage[j].DurationMillis {
			return r.Usage[i].DurationMillis > r.Usage[j].DurationMillis
		}
		return r.Usage[i].Package < r.Usage[j].Package
	})

	r.Total = util.FormatDurationMillis(r.TotalMillis)
	return r
}
