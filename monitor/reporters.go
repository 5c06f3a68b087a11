package monitor

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/frobware/go-pagecache"
	"github.com/frobware/go-pagecache/store"
)

// StatsdMetric is the gauge name sent to DogStatsD.
const StatsdMetric = "pagecache_ttl.min_cached_time_seconds"

// DefaultStatsdAddress is the local DogStatsD agent.
const DefaultStatsdAddress = "127.0.0.1:8125"

// Reporter receives every sample the monitor produces.
type Reporter interface {
	Report(ctx context.Context, s pagecache.Sample) error
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(ctx context.Context, s pagecache.Sample) error

func (f ReporterFunc) Report(ctx context.Context, s pagecache.Sample) error {
	return f(ctx, s)
}

// StdoutReporter prints one line per sample:
//
//	{"min_cached_time": 42}
type StdoutReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdoutReporter writes to w.
func NewStdoutReporter(w io.Writer) *StdoutReporter {
	return &StdoutReporter{w: w}
}

func (r *StdoutReporter) Report(_ context.Context, s pagecache.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.w, "{\"min_cached_time\": %d}\n", s.MinCachedSeconds())
	return err
}

// StatsdReporter sends the minimum cached time as a DogStatsD gauge.
type StatsdReporter struct {
	client statsd.ClientInterface
	tags   []string
}

// NewStatsdReporter connects to the agent at addr (host:port or
// unix:///path).
func NewStatsdReporter(addr string, tags ...string) (*StatsdReporter, error) {
	if addr == "" {
		addr = DefaultStatsdAddress
	}
	client, err := statsd.New(addr, statsd.WithoutTelemetry())
	if err != nil {
		return nil, fmt.Errorf("statsd client for %s: %w", addr, err)
	}
	return &StatsdReporter{client: client, tags: tags}, nil
}

// NewStatsdReporterWithClient uses an existing client.
func NewStatsdReporterWithClient(client statsd.ClientInterface, tags ...string) *StatsdReporter {
	return &StatsdReporter{client: client, tags: tags}
}

func (r *StatsdReporter) Report(_ context.Context, s pagecache.Sample) error {
	return r.client.Gauge(StatsdMetric, float64(s.MinCachedSeconds()), r.tags, 1)
}

// Close flushes and closes the client.
func (r *StatsdReporter) Close() error {
	return r.client.Close()
}

// StoreReporter records every sample in a store.
type StoreReporter struct {
	store store.Store
}

func NewStoreReporter(st store.Store) *StoreReporter {
	return &StoreReporter{store: st}
}

func (r *StoreReporter) Report(ctx context.Context, s pagecache.Sample) error {
	_, err := r.store.SaveSample(ctx, s)
	return err
}
