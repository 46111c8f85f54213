// Package eventlog persists the append-only timeline of domain events.
package eventlog

import (
	"context"
	"errors"

	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
)

// ErrNotFound is returned when a lookup matches no event.
var ErrNotFound = errors.New("event not found")

// Log is the append-only event store. Query results are ordered by
// timestamp with insertion id as the tie-break.
type Log interface {
	// Append stores the event and returns its assigned id.
	Append(ctx context.Context, ev event.TimelineEvent) (int64, error)
	// Query returns all decodable events in [startMillis, endMillis].
	Query(ctx context.Context, startMillis, endMillis int64) ([]event.TimelineEvent, error)
	// LatestOfKindBefore returns the newest event of the given kind
	// strictly before beforeMillis, or ErrNotFound. Used to seed state
	// after a restart without scanning the whole log.
	LatestOfKindBefore(ctx context.Context, kind event.Kind, beforeMillis int64) (event.TimelineEvent, error)
	// Reset deletes everything.
	Reset(ctx context.Context) error
	Close() error
}
