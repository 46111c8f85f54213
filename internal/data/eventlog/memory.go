package eventlog

import (
	"context"
	"sync"

	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
)

// MemoryLog is an in-memory, test-friendly Log. Events keep their
// encoded form so codec behavior matches the SQLite store.
type MemoryLog struct {
	mu     sync.Mutex
	nextID int64
	rows   []memoryRow
}

type memoryRow struct {
	id        int64
	timestamp int64
	kind      event.Kind
	version   int
	payload   []byte
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{nextID: 1}
}

func (l *MemoryLog) Append(_ context.Context, ev event.TimelineEvent) (int64, error) {
	kind, version, data, err := event.EncodePayload(ev.Payload)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.rows = append(l.rows, memoryRow{
		id:        id,
		timestamp: ev.Timestamp,
		kind:      kind,
		version:   version,
		payload:   data,
	})
	return id, nil
}

func (l *MemoryLog) Query(_ context.Context, startMillis, endMillis int64) ([]event.TimelineEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var events []event.TimelineEvent
	for _, row := range l.rows {
		if row.timestamp < startMillis || row.timestamp > endMillis {
			continue
		}
		payload, err := event.DecodePayload(row.kind, row.version, row.payload)
		if err != nil {
			continue
		}
		events = append(events, event.TimelineEvent{ID: row.id, Timestamp: row.timestamp, Payload: payload})
	}
	event.Sort(events)
	return events, nil
}

func (l *MemoryLog) LatestOfKindBefore(_ context.Context, kind event.Kind, beforeMillis int64) (event.TimelineEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	best := -1
	for i, row := range l.rows {
		if row.kind != kind || row.timestamp >= beforeMillis {
			continue
		}
		if best == -1 || row.timestamp > l.rows[best].timestamp ||
			(row.timestamp == l.rows[best].timestamp && row.id > l.rows[best].id) {
			best = i
		}
	}
	if best == -1 {
		return event.TimelineEvent{}, ErrNotFound
	}
	row := l.rows[best]
	payload, err := event.DecodePayload(row.kind, row.version, row.payload)
	if err != nil {
		return event.TimelineEvent{}, err
	}
	return event.TimelineEvent{ID: row.id, Timestamp: row.timestamp, Payload: payload}, nil
}

func (l *MemoryLog) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = nil
	return nil
}

func (l *MemoryLog) Close() error { return nil }
