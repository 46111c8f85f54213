package sampler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
)

// ScriptEntry is one line of a replay script. Repeating the same
// package in consecutive entries models the platform reconfirming it.
type ScriptEntry struct {
	PackageName string `json:"packageName"`
	AtMillis    int64  `json:"atMillis"`
}

// ReplaySampler plays a scripted sample sequence. With Paced set it
// sleeps the inter-sample gaps (divided by Speed); otherwise it emits
// as fast as the consumer reads.
type ReplaySampler struct {
	entries []ScriptEntry
	paced   bool
	speed   float64
	clock   func() int64
}

func NewReplaySampler(entries []ScriptEntry) *ReplaySampler {
	return &ReplaySampler{entries: entries, speed: 1}
}

// LoadReplayScript reads a JSON array of script entries.
func LoadReplayScript(path string) (*ReplaySampler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay script: %w", err)
	}
	var entries []ScriptEntry
	if err := sonic.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse replay script %s: %w", path, err)
	}
	return NewReplaySampler(entries), nil
}

// Paced makes playback honor inter-sample gaps at the given speed
// multiplier (2 = twice as fast).
func (r *ReplaySampler) Paced(speed float64) *ReplaySampler {
	r.paced = true
	if speed <= 0 {
		speed = 1
	}
	r.speed = speed
	return r
}

// Rebase stamps each emitted sample with the wall clock at emission
// instead of the script timestamp. Scripts written against an arbitrary
// epoch then line up with a consumer that also reads real time.
func (r *ReplaySampler) Rebase() *ReplaySampler {
	r.clock = func() int64 { return time.Now().UnixMilli() }
	return r
}

// Start plays the script once. The channel closes at the end of the
// script or when ctx ends, whichever comes first.
func (r *ReplaySampler) Start(ctx context.Context) (<-chan Sample, error) {
	out := make(chan Sample)
	go func() {
		defer close(out)
		var generation uint64
		var prevAt int64
		for i, entry := range r.entries {
			if r.paced && i > 0 {
				gap := time.Duration(float64(entry.AtMillis-prevAt)/r.speed) * time.Millisecond
				if gap > 0 {
					select {
					case <-time.After(gap):
					case <-ctx.Done():
						return
					}
				}
			}
			prevAt = entry.AtMillis

			at := entry.AtMillis
			if r.clock != nil {
				at = r.clock()
			}

			generation++
			select {
			case out <- Sample{PackageName: entry.PackageName, Generation: generation, AtMillis: at}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
