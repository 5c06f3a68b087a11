package sqlite

import (
	"context"
	"fmt"
)

const sampleColumns = "id, run_id, recorded_at, min_cached_seconds, tracked, deleted"

// prepareStatements prepares every query the store runs.
func (s *sqliteStore) prepareStatements(ctx context.Context) error {
	var err error

	const sqlSaveSample = `
		INSERT INTO samples (run_id, recorded_at, min_cached_seconds, tracked, deleted)
		VALUES (?, ?, ?, ?, ?)`
	if s.stmtSaveSample, err = s.db.PrepareContext(ctx, sqlSaveSample); err != nil {
		return fmt.Errorf("prepare SaveSample: %w", err)
	}

	const sqlGetSample = "SELECT " + sampleColumns + " FROM samples WHERE id = ?"
	if s.stmtGetSample, err = s.db.PrepareContext(ctx, sqlGetSample); err != nil {
		return fmt.Errorf("prepare GetSample: %w", err)
	}

	// A limit of -1 means no limit in SQLite.
	const sqlListSamples = "SELECT " + sampleColumns + ` FROM samples
		WHERE recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`
	if s.stmtListSamples, err = s.db.PrepareContext(ctx, sqlListSamples); err != nil {
		return fmt.Errorf("prepare ListSamples: %w", err)
	}

	const sqlListSamplesByRun = "SELECT " + sampleColumns + ` FROM samples
		WHERE run_id = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`
	if s.stmtListSamplesByRun, err = s.db.PrepareContext(ctx, sqlListSamplesByRun); err != nil {
		return fmt.Errorf("prepare ListSamplesByRun: %w", err)
	}

	const sqlPruneSamples = "DELETE FROM samples WHERE recorded_at < ?"
	if s.stmtPruneSamples, err = s.db.PrepareContext(ctx, sqlPruneSamples); err != nil {
		return fmt.Errorf("prepare PruneSamples: %w", err)
	}

	return nil
}
