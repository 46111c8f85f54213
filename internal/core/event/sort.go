package event

import "sort"

// Less orders events by timestamp, then by persisted id. Events without
// an id (not yet appended) sort after persisted events at the same
// timestamp, matching log insertion order.
func Less(a, b TimelineEvent) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.ID < b.ID
}

// Sort sorts events in place into canonical log order. The sort is
// stable so equal (timestamp, id) pairs keep their arrival order.
func Sort(events []TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return Less(events[i], events[j])
	})
}
