package session

// Segment is a half-open interval of active usage time.
type Segment struct {
	StartMillis int64
	EndMillis   int64
}

// BuildActiveSegments walks the session's sub-events in order and
// returns the non-overlapping, time-ordered intervals during which the
// session was actively in the foreground. A segment opens at Start or
// Resume and closes at Pause or End; an unterminated open segment is
// closed at nowMillis. Informational sub-events are ignored.
func BuildActiveSegments(events []SessionEvent, nowMillis int64) []Segment {
	segments := make([]Segment, 0, 2)
	var openStart *int64

	for _, ev := range events {
		switch ev.Kind {
		case EventStart, EventResume:
			if openStart == nil {
				start := ev.Timestamp
				openStart = &start
			}
		case EventPause, EventEnd:
			if openStart != nil {
				if ev.Timestamp > *openStart {
					segments = append(segments, Segment{StartMillis: *openStart, EndMillis: ev.Timestamp})
				}
				openStart = nil
			}
		}
	}

	if openStart != nil && nowMillis > *openStart {
		segments = append(segments, Segment{StartMillis: *openStart, EndMillis: nowMillis})
	}

	return segments
}

// CalculateDurationMillis sums the lengths of the session's active
// segments. Empty sub-events yield 0; a nowMillis earlier than the
// session start clamps to 0, never negative.
func CalculateDurationMillis(events []SessionEvent, nowMillis int64) int64 {
	var total int64
	for _, seg := range BuildActiveSegments(events, nowMillis) {
		total += seg.EndMillis - seg.StartMillis
	}
	return total
}

// ClipSegments intersects segments with the window [startMillis,
// endMillis) and returns the clipped total. Used by the daily cache to
// count only the part of a session that falls inside a calendar day.
func ClipSegments(segments []Segment, startMillis, endMillis int64) int64 {
	var total int64
	for _, seg := range segments {
		lo := seg.StartMillis
		hi := seg.EndMillis
		if lo < startMillis {
			lo = startMillis
		}
		if hi > endMillis {
			hi = endMillis
		}
		if hi > lo {
			total += hi - lo
		}
	}
	return total
}
