package util

import (
	"fmt"
	"sync"
	"time"
)

// TimeProvider is a global time utility that handles timezone-aware time operations
type TimeProvider struct {
	location *time.Location
	mu       sync.RWMutex
}

var (
	globalTimeProvider *TimeProvider
	mu                 sync.Mutex
)

// InitializeTimeProvider initializes the global time provider with the specified timezone
func InitializeTimeProvider(timezone string) error {
	mu.Lock()
	defer mu.Unlock()

	provider := &TimeProvider{}
	if err := provider.SetTimezone(timezone); err != nil {
		return err
	}
	globalTimeProvider = provider
	return nil
}

// GetTimeProvider returns the global time provider instance
// If not initialized, it defaults to Local timezone
func GetTimeProvider() *TimeProvider {
	if globalTimeProvider == nil {
		InitializeTimeProvider("Local")
	}
	return globalTimeProvider
}

// SetTimezone updates the timezone for the time provider
func (tp *TimeProvider) SetTimezone(timezone string) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	loc := time.Local
	if timezone != "" && timezone != "Local" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w\nValid examples: Local, UTC, America/New_York, Asia/Shanghai, Europe/London", timezone, err)
		}
		loc = l
	}
	tp.location = loc
	return nil
}

// Now returns the current time in the configured timezone
func (tp *TimeProvider) Now() time.Time {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return time.Now().In(tp.location)
}

// NowMillis returns the current unix time in milliseconds.
func (tp *TimeProvider) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// In converts a time to the configured timezone
func (tp *TimeProvider) In(t time.Time) time.Time {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return t.In(tp.location)
}

// DayStartMillis returns midnight of the day containing atMillis, in the
// configured timezone. Day totals reset at this boundary.
func (tp *TimeProvider) DayStartMillis(atMillis int64) int64 {
	tp.mu.RLock()
	loc := tp.location
	tp.mu.RUnlock()

	t := time.UnixMilli(atMillis).In(loc)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return midnight.UnixMilli()
}

// NextDayStartMillis returns the first millisecond of the day after the
// one containing atMillis. DST transitions make this differ from
// DayStartMillis+24h.
func (tp *TimeProvider) NextDayStartMillis(atMillis int64) int64 {
	tp.mu.RLock()
	loc := tp.location
	tp.mu.RUnlock()

	t := time.UnixMilli(atMillis).In(loc)
	next := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
	return next.UnixMilli()
}

// Format formats a time according to the layout in the configured timezone
func (tp *TimeProvider) Format(t time.Time, layout string) string {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return t.In(tp.location).Format(layout)
}

// FormatMillis formats a unix-millisecond timestamp in the configured
// timezone.
func (tp *TimeProvider) FormatMillis(ms int64, layout string) string {
	return tp.Format(time.UnixMilli(ms), layout)
}
