// Package monitor estimates how long data survives in the page cache.
//
// Every tick the monitor writes a small sentinel file named after the
// current Unix time, then walks the existing sentinels from newest to
// oldest. The first one that is no longer resident (or that fell out
// of the configured window) marks the point from which all older
// sentinels are deleted; the age of the youngest evicted file's
// predecessor is the minimum time data stayed cached.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/frobware/go-pagecache"
	"github.com/frobware/go-pagecache/residency"
)

// Prober measures page cache residency of a file by path.
// *residency.Probe satisfies it.
type Prober interface {
	MeasurePath(path string) (residency.Result, error)
}

// Config controls a Monitor.
type Config struct {
	// TmpDir holds the sentinel files. It must already exist and
	// should live on a disk-backed filesystem.
	TmpDir string
	// Interval is the delay between ticks in Run.
	Interval time.Duration
	// MaxWindow is the oldest a sentinel may get before it is
	// deleted regardless of residency.
	MaxWindow time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// OnTick, if set, is called after every tick in Run with the
	// tick's error (nil on success).
	OnTick func(error)
}

// Monitor runs the sentinel file loop.
type Monitor struct {
	cfg       Config
	prober    Prober
	logger    *slog.Logger
	reporters []Reporter
	runID     uuid.UUID
	ticks     atomic.Uint64
}

// New returns a monitor over cfg.TmpDir. It fails with
// pagecache.ErrTmpDirMissing if the directory does not exist.
func New(cfg Config, prober Prober, logger *slog.Logger, reporters ...Reporter) (*Monitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = withTickHandler(logger.With("component", "monitor"))

	fi, err := os.Stat(cfg.TmpDir)
	if err != nil || !fi.IsDir() {
		logger.Error("sentinel directory does not exist", "path", cfg.TmpDir)
		return nil, pagecache.ErrTmpDirMissing{Path: cfg.TmpDir}
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.MaxWindow <= 0 {
		return nil, fmt.Errorf("max window must be positive, got %s", cfg.MaxWindow)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Monitor{
		cfg:       cfg,
		prober:    prober,
		logger:    logger,
		reporters: reporters,
		runID:     pagecache.NewRunID(),
	}, nil
}

// RunID identifies this monitor in recorded samples.
func (m *Monitor) RunID() uuid.UUID {
	return m.runID
}

// Run ticks immediately and then every Interval until ctx is done.
// A failed tick is logged and the loop carries on.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "starting monitor",
		"run_id", m.runID,
		"tmp_dir", m.cfg.TmpDir,
		"interval", m.cfg.Interval,
		"max_window", m.cfg.MaxWindow,
	)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		_, err := m.Tick(ctx)
		if err != nil {
			m.logger.ErrorContext(ctx, "tick failed", "error", err)
		}
		if m.cfg.OnTick != nil {
			m.cfg.OnTick(err)
		}

		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "monitor stopped", "ticks", m.ticks.Load())
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one iteration: create a sentinel, delete those that are
// evicted or expired, and report the resulting sample.
func (m *Monitor) Tick(ctx context.Context) (pagecache.Sample, error) {
	ctx = contextWithTick(ctx, m.ticks.Add(1))
	now := m.cfg.Now()

	if err := m.createFile(ctx, now); err != nil {
		return pagecache.Sample{}, err
	}

	files, err := m.existingFiles(ctx)
	if err != nil {
		return pagecache.Sample{}, err
	}

	idx := m.indexToStartDeletion(ctx, files, now.Unix())
	deleted, err := m.deleteFrom(ctx, files, idx)
	if err != nil {
		return pagecache.Sample{}, err
	}

	sample := pagecache.Sample{
		RunID:         m.runID,
		Time:          now,
		MinCachedTime: minCachedTime(files, idx, now.Unix()),
		Tracked:       len(files),
		Deleted:       deleted,
	}
	m.logger.InfoContext(ctx, "current min time page is cached", "seconds", sample.MinCachedSeconds())

	m.report(ctx, sample)
	return sample, nil
}

func (m *Monitor) path(name int64) string {
	return filepath.Join(m.cfg.TmpDir, strconv.FormatInt(name, 10))
}

// createFile writes a sentinel named after now. The content is the
// name itself, which fits in a single page.
func (m *Monitor) createFile(ctx context.Context, now time.Time) error {
	name := now.Unix()
	path := m.path(name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create sentinel: %w", err)
	}
	if _, err := f.WriteString(strconv.FormatInt(name, 10)); err != nil {
		f.Close()
		return fmt.Errorf("write sentinel %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync sentinel %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close sentinel %s: %w", path, err)
	}

	m.logger.DebugContext(ctx, "created sentinel", "name", name)
	return nil
}

// existingFiles returns the sentinel timestamps, newest first. Entries
// whose names are not integers are ignored.
func (m *Monitor) existingFiles(ctx context.Context) ([]int64, error) {
	entries, err := os.ReadDir(m.cfg.TmpDir)
	if err != nil {
		return nil, fmt.Errorf("list sentinels: %w", err)
	}

	files := make([]int64, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ts, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, ts)
	}
	slices.Sort(files)
	slices.Reverse(files)

	m.logger.DebugContext(ctx, "sorted sentinels", "files", files)
	return files, nil
}

// firstExpired returns the index of the first sentinel older than the
// window, or -1.
func (m *Monitor) firstExpired(ctx context.Context, files []int64, now int64) int {
	limit := now - int64(m.cfg.MaxWindow/time.Second)
	for i, ts := range files {
		if ts < limit {
			m.logger.DebugContext(ctx, "first expired sentinel", "name", ts, "index", i)
			return i
		}
	}
	return -1
}

// firstNotCached returns the index of the first sentinel with no
// resident pages, or -1. A sentinel that cannot be probed counts as
// not cached.
func (m *Monitor) firstNotCached(ctx context.Context, files []int64) int {
	for i, ts := range files {
		res, err := m.prober.MeasurePath(m.path(ts))
		if err != nil {
			m.logger.WarnContext(ctx, "probe failed, treating sentinel as evicted", "name", ts, "error", err)
			return i
		}
		if res.Cached == 0 {
			m.logger.DebugContext(ctx, "first evicted sentinel", "name", ts, "index", i)
			return i
		}
	}
	return -1
}

// indexToStartDeletion returns the smaller of the first expired and
// first evicted indices, or -1 when neither exists.
func (m *Monitor) indexToStartDeletion(ctx context.Context, files []int64, now int64) int {
	expired := m.firstExpired(ctx, files, now)
	notCached := m.firstNotCached(ctx, files)

	switch {
	case expired < 0:
		return notCached
	case notCached < 0:
		return expired
	default:
		return min(expired, notCached)
	}
}

// deleteFrom removes files[idx:] and returns how many were removed.
// Sentinels that already vanished are not an error.
func (m *Monitor) deleteFrom(ctx context.Context, files []int64, idx int) (int, error) {
	if idx < 0 {
		return 0, nil
	}
	m.logger.DebugContext(ctx, "deleting sentinels", "total", len(files), "from", idx)

	var (
		deleted int
		errs    []error
	)
	for _, ts := range files[idx:] {
		err := os.Remove(m.path(ts))
		switch {
		case err == nil:
			deleted++
			m.logger.DebugContext(ctx, "deleted sentinel", "name", ts)
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return deleted, fmt.Errorf("delete sentinels: %w", err)
	}
	return deleted, nil
}

// minCachedTime is the age of the youngest sentinel before idx. When
// nothing was deleted it is the age of the oldest sentinel; when even
// the newest was evicted it is zero.
func minCachedTime(files []int64, idx int, now int64) time.Duration {
	var age int64
	switch {
	case len(files) == 0, idx == 0:
		return 0
	case idx > 0:
		age = now - files[idx-1]
	default:
		age = now - files[len(files)-1]
	}
	if age < 0 {
		return 0
	}
	return time.Duration(age) * time.Second
}

func (m *Monitor) report(ctx context.Context, s pagecache.Sample) {
	for _, r := range m.reporters {
		if err := r.Report(ctx, s); err != nil {
			m.logger.WarnContext(ctx, "reporter failed", "reporter", fmt.Sprintf("%T", r), "error", err)
		}
	}
}
