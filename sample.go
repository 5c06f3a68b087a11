package pagecache

import (
	"time"

	"github.com/google/uuid"
)

// Sample is one observation made by the TTL monitor.
type Sample struct {
	// ID is assigned by the store; zero until saved.
	ID int64 `json:"id,omitempty"`
	// RunID identifies the monitor process that took the sample.
	RunID uuid.UUID `json:"run_id"`
	// Time is when the sample was taken.
	Time time.Time `json:"time"`
	// MinCachedTime is the age of the oldest sentinel file still
	// resident in the page cache.
	MinCachedTime time.Duration `json:"min_cached_time"`
	// Tracked is the number of sentinel files present before deletion.
	Tracked int `json:"tracked"`
	// Deleted is the number of sentinel files removed by this tick.
	Deleted int `json:"deleted"`
}

// MinCachedSeconds returns MinCachedTime in whole seconds.
func (s Sample) MinCachedSeconds() int64 {
	return int64(s.MinCachedTime / time.Second)
}

// NewRunID returns a fresh identifier for a monitor run.
func NewRunID() uuid.UUID {
	return uuid.New()
}
