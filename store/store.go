// Package store defines persistence for monitor samples.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/frobware/go-pagecache"
)

// ListOptions filters ListSamples. Zero values mean no filter.
type ListOptions struct {
	// Limit caps the number of samples returned, newest first.
	Limit int
	// RunID restricts results to a single monitor run.
	RunID uuid.UUID
	// Since excludes samples taken before this time.
	Since time.Time
}

// Store persists samples.
type Store interface {
	// SaveSample records s and returns its assigned ID.
	SaveSample(ctx context.Context, s pagecache.Sample) (int64, error)
	// GetSample returns pagecache.ErrSampleNotFound for unknown IDs.
	GetSample(ctx context.Context, id int64) (pagecache.Sample, error)
	// ListSamples returns samples newest first.
	ListSamples(ctx context.Context, opts ListOptions) ([]pagecache.Sample, error)
	// PruneSamples deletes samples taken before cutoff and returns how
	// many were removed.
	PruneSamples(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}
