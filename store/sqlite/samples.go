package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frobware/go-pagecache"
	"github.com/frobware/go-pagecache/store"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (pagecache.Sample, error) {
	var (
		s          pagecache.Sample
		runID      string
		recordedAt int64
		minCached  int64
	)
	if err := row.Scan(&s.ID, &runID, &recordedAt, &minCached, &s.Tracked, &s.Deleted); err != nil {
		return pagecache.Sample{}, err
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		return pagecache.Sample{}, fmt.Errorf("sample %d has invalid run_id %q: %w", s.ID, runID, err)
	}
	s.RunID = id
	s.Time = time.Unix(0, recordedAt).UTC()
	s.MinCachedTime = time.Duration(minCached) * time.Second
	return s, nil
}

// SaveSample inserts s and returns its row ID.
func (s *sqliteStore) SaveSample(ctx context.Context, sample pagecache.Sample) (int64, error) {
	start := time.Now()
	res, err := s.stmtSaveSample.ExecContext(ctx,
		sample.RunID.String(),
		sample.Time.UnixNano(),
		sample.MinCachedSeconds(),
		sample.Tracked,
		sample.Deleted,
	)
	if err != nil {
		return 0, fmt.Errorf("save sample: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save sample: %w", err)
	}
	s.logger.Debug("saved sample", "id", id, "min_cached_seconds", sample.MinCachedSeconds(), "ms", msec(time.Since(start)))
	return id, nil
}

// GetSample returns the sample with the given ID.
func (s *sqliteStore) GetSample(ctx context.Context, id int64) (pagecache.Sample, error) {
	sample, err := scanSample(s.stmtGetSample.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return pagecache.Sample{}, pagecache.ErrSampleNotFound{ID: id}
	}
	if err != nil {
		return pagecache.Sample{}, fmt.Errorf("get sample %d: %w", id, err)
	}
	return sample, nil
}

// ListSamples returns samples newest first.
func (s *sqliteStore) ListSamples(ctx context.Context, opts store.ListOptions) ([]pagecache.Sample, error) {
	limit := int64(-1)
	if opts.Limit > 0 {
		limit = int64(opts.Limit)
	}
	var since int64
	if !opts.Since.IsZero() {
		since = opts.Since.UnixNano()
	}

	var (
		rows *sql.Rows
		err  error
	)
	if opts.RunID != uuid.Nil {
		rows, err = s.stmtListSamplesByRun.QueryContext(ctx, opts.RunID.String(), since, limit)
	} else {
		rows, err = s.stmtListSamples.QueryContext(ctx, since, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var samples []pagecache.Sample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("list samples: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	return samples, nil
}

// PruneSamples deletes samples recorded before cutoff.
func (s *sqliteStore) PruneSamples(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.stmtPruneSamples.ExecContext(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune samples: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned samples", "count", n, "before", cutoff.Format(time.RFC3339))
	}
	return n, nil
}
