package usage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/halfmoor/go-screentime-monitor/internal/core/constants"
	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/core/session"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// EventQuerier is the slice of the event log the cache needs.
type EventQuerier interface {
	Query(ctx context.Context, startMillis, endMillis int64) ([]event.TimelineEvent, error)
}

// Snapshot is a point-in-time materialization of today's totals. It is
// immutable; refreshes replace it wholesale.
type Snapshot struct {
	ComputedAtMillis  int64
	DayStartMillis    int64
	GracePeriodMillis int64
	TargetPackages    []string
	PerPackageMillis  map[string]int64
	AllTargetsMillis  int64
}

// deltaState is the cheap accumulation layered on top of the last
// snapshot. Reset to empty whenever a snapshot lands.
type deltaState struct {
	lastTickMillis   int64
	perPackageMillis map[string]int64
	allTargetsMillis int64
}

// Params are the inputs a refresh projects with. A change in day start,
// grace period, or target set invalidates the previous snapshot
// outright.
type Params struct {
	DayStartMillis    int64
	GracePeriodMillis int64
	TargetPackages    []string
	NowMillis         int64
}

// Config tunes the cache.
type Config struct {
	MinRefreshInterval time.Duration
	SeedLookbackMillis int64
	DeltaCapMillis     int64
}

func DefaultConfig() Config {
	return Config{
		MinRefreshInterval: constants.SnapshotMinRefreshInterval,
		SeedLookbackMillis: constants.SnapshotSeedLookbackMillis,
		DeltaCapMillis:     constants.DeltaCapMillis,
	}
}

// Cache keeps "today's total usage" cheap to read: an expensive snapshot
// recomputed through the projector plus a capped runtime delta advanced
// on every tick. Reads never block; refreshes run at most one at a
// time, with concurrent requests coalesced.
type Cache struct {
	mu       sync.Mutex
	cfg      Config
	log      EventQuerier
	snapshot *Snapshot
	delta    deltaState

	group singleflight.Group
}

func NewCache(log EventQuerier, cfg Config) *Cache {
	return &Cache{
		cfg:   cfg,
		log:   log,
		delta: deltaState{perPackageMillis: make(map[string]int64)},
	}
}

// TodayThisTargetMillis returns snapshot + delta for one package. It
// only reads already-computed state.
func (c *Cache) TodayThisTargetMillis(pkg string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	if c.snapshot != nil {
		total += c.snapshot.PerPackageMillis[pkg]
	}
	total += c.delta.perPackageMillis[pkg]
	return total
}

// TodayAllTargetsMillis returns snapshot + delta across all targets.
func (c *Cache) TodayAllTargetsMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	if c.snapshot != nil {
		total += c.snapshot.AllTargetsMillis
	}
	total += c.delta.allTargetsMillis
	return total
}

// TodayPerPackageMillis returns a copy of the combined per-package map.
func (c *Cache) TodayPerPackageMillis() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64)
	if c.snapshot != nil {
		for pkg, ms := range c.snapshot.PerPackageMillis {
			out[pkg] = ms
		}
	}
	for pkg, ms := range c.delta.perPackageMillis {
		out[pkg] += ms
	}
	return out
}

// Tick advances the runtime delta. The step is capped so a clock gap
// cannot silently inflate the total; activePkg is empty when no target
// app is foreground.
func (c *Cache) Tick(nowMillis int64, activePkg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last := c.delta.lastTickMillis
	c.delta.lastTickMillis = nowMillis
	if last == 0 || nowMillis <= last {
		return
	}
	if activePkg == "" {
		return
	}
	step := nowMillis - last
	if c.cfg.DeltaCapMillis > 0 && step > c.cfg.DeltaCapMillis {
		util.LogWarnf("usage: tick gap %dms exceeds cap, counting %dms", step, c.cfg.DeltaCapMillis)
		step = c.cfg.DeltaCapMillis
	}
	c.delta.perPackageMillis[activePkg] += step
	c.delta.allTargetsMillis += step
}

// Invalidate discards the snapshot and delta outright. Used on day
// rollover, grace-period change, and target-set change.
func (c *Cache) Invalidate(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
	c.resetDeltaLocked(0)
	util.LogInfof("usage: snapshot invalidated (%s)", reason)
}

// SnapshotStale reports whether params no longer match the current
// snapshot (or there is none), meaning a forced refresh is due.
func (c *Cache) SnapshotStale(p Params) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.snapshot
	if s == nil {
		return true
	}
	if s.DayStartMillis != p.DayStartMillis || s.GracePeriodMillis != p.GracePeriodMillis {
		return true
	}
	return !equalTargetSets(s.TargetPackages, p.TargetPackages)
}

// RequestRefresh triggers an asynchronous snapshot refresh. It returns
// immediately; a refresh already in flight absorbs the request.
func (c *Cache) RequestRefresh(ctx context.Context, p Params, force bool) {
	go func() {
		if err := c.Refresh(ctx, p, force); err != nil {
			util.LogErrorf("usage: snapshot refresh failed: %v", err)
		}
	}()
}

// Refresh recomputes the snapshot synchronously. Concurrent callers are
// coalesced onto a single projection pass; a non-forced call inside the
// TTL is a no-op.
func (c *Cache) Refresh(ctx context.Context, p Params, force bool) error {
	_, err, _ := c.group.Do("snapshot", func() (interface{}, error) {
		if !force && !c.refreshDue(p) {
			return nil, nil
		}
		return nil, c.refresh(ctx, p)
	})
	return err
}

func (c *Cache) refreshDue(p Params) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil {
		return true
	}
	age := time.Duration(p.NowMillis-c.snapshot.ComputedAtMillis) * time.Millisecond
	return age >= c.cfg.MinRefreshInterval
}

func (c *Cache) refresh(ctx context.Context, p Params) error {
	queryStart := p.DayStartMillis - c.cfg.SeedLookbackMillis
	events, err := c.log.Query(ctx, queryStart, p.NowMillis)
	if err != nil {
		return fmt.Errorf("query event window: %w", err)
	}

	sessions := session.Project(session.ProjectionInput{
		Events:            events,
		TargetPackages:    p.TargetPackages,
		GracePeriodMillis: p.GracePeriodMillis,
		NowMillis:         p.NowMillis,
	})

	perPkg := make(map[string]int64)
	var all int64
	for _, sess := range sessions {
		segments := session.BuildActiveSegments(sess.Events, p.NowMillis)
		clipped := session.ClipSegments(segments, p.DayStartMillis, p.NowMillis)
		if clipped <= 0 {
			continue
		}
		perPkg[sess.PackageName] += clipped
		all += clipped
	}

	targets := append([]string(nil), p.TargetPackages...)
	sort.Strings(targets)

	snap := &Snapshot{
		ComputedAtMillis:  p.NowMillis,
		DayStartMillis:    p.DayStartMillis,
		GracePeriodMillis: p.GracePeriodMillis,
		TargetPackages:    targets,
		PerPackageMillis:  perPkg,
		AllTargetsMillis:  all,
	}

	// The snapshot covers everything up to p.NowMillis, so the delta
	// baseline resets with it; keeping old delta would double-count.
	c.mu.Lock()
	c.snapshot = snap
	c.resetDeltaLocked(p.NowMillis)
	c.mu.Unlock()

	util.LogDebugf("usage: snapshot refreshed, %d events, %d sessions, all-targets=%dms",
		len(events), len(sessions), all)
	return nil
}

func (c *Cache) resetDeltaLocked(nowMillis int64) {
	c.delta = deltaState{
		lastTickMillis:   nowMillis,
		perPackageMillis: make(map[string]int64),
	}
}

// CurrentSnapshot returns the live snapshot, or nil. Callers must treat
// it as read-only.
func (c *Cache) CurrentSnapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func equalTargetSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, pkg := range a {
		set[pkg] = struct{}{}
	}
	for _, pkg := range b {
		if _, ok := set[pkg]; !ok {
			return false
		}
	}
	return true
}
