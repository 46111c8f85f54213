package constants

import "time"

const (
	// Grace period and sampling defaults, overridable via settings.
	DefaultGracePeriod  = 5 * time.Second
	DefaultPollInterval = 1 * time.Second

	// Daily cache tuning
	SnapshotMinRefreshInterval = 30 * time.Second
	// Look-back before day start so sessions straddling midnight resume
	// correctly in the day's projection.
	SnapshotSeedLookbackMillis = int64(6 * 3600 * 1000)
	// Cap on a single runtime delta step; bounds the error a clock gap
	// (process suspension, scheduler delay) can inject into the total.
	DeltaCapMillis = int64(5 * 1000)

	// Suggestion gate defaults
	DefaultSuggestionTrigger  = 10 * time.Minute
	DefaultSuggestionStable   = 10 * time.Second
	DefaultSuggestionCooldown = 5 * time.Minute

	// Orchestrator supervision
	RestartInitialBackoff = 1 * time.Second
	RestartMaxBackoff     = 2 * time.Minute

	// Side-effect queue
	EffectQueueSize         = 256
	EffectEnqueueTimeout    = 250 * time.Millisecond
	EffectAppendTimeout     = 5 * time.Second
	BootstrapLookbackMillis = int64(12 * 3600 * 1000)
)
