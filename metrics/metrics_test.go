package metrics_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-pagecache"
	"github.com/frobware/go-pagecache/metrics"
)

func TestCollector_Report(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c, err := metrics.New(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Report(ctx, pagecache.Sample{Time: time.Unix(1000, 0), MinCachedTime: 42 * time.Second, Tracked: 7, Deleted: 2}))
	require.NoError(t, c.Report(ctx, pagecache.Sample{Time: time.Unix(1005, 0), MinCachedTime: 40 * time.Second, Tracked: 6, Deleted: 1}))

	want := `
# HELP pagecache_ttl_min_cached_time_seconds Minimum time data has stayed in the page cache.
# TYPE pagecache_ttl_min_cached_time_seconds gauge
pagecache_ttl_min_cached_time_seconds 40
# HELP pagecache_ttl_sentinel_files Sentinel files present at the last tick, before deletion.
# TYPE pagecache_ttl_sentinel_files gauge
pagecache_ttl_sentinel_files 6
# HELP pagecache_ttl_sentinel_files_deleted_total Sentinel files deleted after eviction or expiry.
# TYPE pagecache_ttl_sentinel_files_deleted_total counter
pagecache_ttl_sentinel_files_deleted_total 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want),
		"pagecache_ttl_min_cached_time_seconds",
		"pagecache_ttl_sentinel_files",
		"pagecache_ttl_sentinel_files_deleted_total",
	))

	n, err := testutil.GatherAndCount(reg, "pagecache_ttl_last_sample_timestamp_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollector_ObserveTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metrics.New(reg)
	require.NoError(t, err)

	c.ObserveTick(nil)
	c.ObserveTick(nil)
	c.ObserveTick(errors.New("boom"))

	want := `
# HELP pagecache_ttl_ticks_total Monitor ticks by outcome.
# TYPE pagecache_ttl_ticks_total counter
pagecache_ttl_ticks_total{status="error"} 1
pagecache_ttl_ticks_total{status="success"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "pagecache_ttl_ticks_total"))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)

	_, err = metrics.New(reg)
	assert.Error(t, err)
}
