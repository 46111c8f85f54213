package sampler

import (
	"context"
	"sync"
)

// ChannelSampler is the integration point for a live platform adapter:
// the adapter calls Push on every poll, consumers receive Samples.
// Generation counters are assigned here so adapters only report what
// they see.
type ChannelSampler struct {
	mu         sync.Mutex
	out        chan Sample
	generation uint64
	started    bool
}

func NewChannelSampler() *ChannelSampler {
	return &ChannelSampler{out: make(chan Sample, 64)}
}

// Start returns the sample channel. The channel closes when ctx ends.
func (c *ChannelSampler) Start(ctx context.Context) (<-chan Sample, error) {
	c.mu.Lock()
	if !c.started {
		c.started = true
		go func() {
			<-ctx.Done()
			c.mu.Lock()
			close(c.out)
			c.started = false
			c.out = make(chan Sample, 64)
			c.mu.Unlock()
		}()
	}
	out := c.out
	c.mu.Unlock()
	return out, nil
}

// Push records one foreground observation. The generation counter
// increments on every push, including reconfirmations of the same
// package. A full buffer drops the sample; foreground polling is lossy
// by nature and the next poll supersedes it.
func (c *ChannelSampler) Push(pkg string, atMillis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	s := Sample{PackageName: pkg, Generation: c.generation, AtMillis: atMillis}
	select {
	case c.out <- s:
	default:
	}
}
