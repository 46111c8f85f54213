package track

import (
	"fmt"

	"github.com/halfmoor/go-screentime-monitor/internal/data/eventlog"
	"github.com/halfmoor/go-screentime-monitor/internal/data/sampler"
	"github.com/halfmoor/go-screentime-monitor/internal/data/settings"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// Config wires the orchestrator's collaborators.
type Config struct {
	Settings *settings.Source
	Log      eventlog.Log
	Sampler  sampler.Source

	// Clock returns the current unix millis. Nil uses the global time
	// provider. The orchestrator samples it once per loop iteration.
	Clock func() int64
}

// Validate checks that the required collaborators are present.
func (c *Config) Validate() error {
	if c.Settings == nil {
		return fmt.Errorf("settings source is required")
	}
	if c.Log == nil {
		return fmt.Errorf("event log is required")
	}
	if c.Sampler == nil {
		return fmt.Errorf("foreground sampler is required")
	}
	return nil
}

func (c *Config) clock() func() int64 {
	if c.Clock != nil {
		return c.Clock
	}
	tp := util.GetTimeProvider()
	return tp.NowMillis
}
