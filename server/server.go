// Package server runs the pagecache TTL daemon.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/frobware/go-pagecache/config"
	"github.com/frobware/go-pagecache/lock"
	"github.com/frobware/go-pagecache/metrics"
	"github.com/frobware/go-pagecache/monitor"
	"github.com/frobware/go-pagecache/residency"
	"github.com/frobware/go-pagecache/store/sqlite"
)

// HealthService is the service name reported on the health endpoint in
// addition to the overall "" status.
const HealthService = "pagecache.Monitor"

// RunConfig configures the daemon.
type RunConfig struct {
	// Config must already be resolved and validated.
	Config config.Config
	// Prober defaults to residency.New().
	Prober monitor.Prober
	// Registry receives the monitor metrics. A nil Registry gets a
	// fresh one with the Go and process collectors.
	Registry *prometheus.Registry
	// Stdout receives per-sample lines when Config.Metrics.Stdout is set.
	Stdout io.Writer
	// LockWait bounds how long to wait for another monitor to exit.
	LockWait time.Duration
	Logger   *slog.Logger
}

// Run starts the daemon and blocks until ctx is cancelled or a
// component fails.
func Run(ctx context.Context, cfg RunConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	dirs, err := cfg.Config.Dirs()
	if err != nil {
		return err
	}
	if err := dirs.EnsureDirectories(); err != nil {
		return fmt.Errorf("runtime directory setup failed: %w", err)
	}

	return lock.Run(ctx, cfg.Config.Monitor.LockFile, cfg.LockWait, func(ctx context.Context, scope lock.Scope) error {
		logger.Info("acquired monitor lock", "path", scope.Path(), "pid", os.Getpid())
		return run(ctx, cfg, logger)
	})
}

func run(ctx context.Context, cfg RunConfig, logger *slog.Logger) error {
	c := cfg.Config
	var reporters []monitor.Reporter

	if c.Store.Enabled {
		st, err := sqlite.New(ctx, c.Store.DBPath, logger)
		if err != nil {
			return fmt.Errorf("failed to open store at %s: %w", c.Store.DBPath, err)
		}
		defer st.Close()

		if c.Store.Retention > 0 {
			if _, err := st.PruneSamples(ctx, time.Now().Add(-c.Store.Retention)); err != nil {
				return err
			}
		}
		reporters = append(reporters, monitor.NewStoreReporter(st))
	}

	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	collector, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	reporters = append(reporters, collector)

	if c.Metrics.Stdout {
		out := cfg.Stdout
		if out == nil {
			out = os.Stdout
		}
		reporters = append(reporters, monitor.NewStdoutReporter(out))
	}

	if c.Metrics.StatsdEnabled {
		sr, err := monitor.NewStatsdReporter(c.Metrics.StatsdAddress)
		if err != nil {
			return err
		}
		defer sr.Close()
		logger.Info("sending metrics to DogStatsD", "address", c.Metrics.StatsdAddress, "metric", monitor.StatsdMetric)
		reporters = append(reporters, sr)
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)

	prober := cfg.Prober
	if prober == nil {
		prober = residency.New()
	}

	m, err := monitor.New(monitor.Config{
		TmpDir:    c.Monitor.TmpDir,
		Interval:  c.Monitor.Interval,
		MaxWindow: c.Monitor.MaxTimeWindow,
		OnTick: func(err error) {
			collector.ObserveTick(err)
			setHealth(hs, err)
		},
	}, prober, logger, reporters...)
	if err != nil {
		return err
	}

	var healthLis, metricsLis net.Listener
	if c.Health.Enabled {
		if healthLis, err = listenUnix(c.Health.Socket); err != nil {
			return err
		}
	} else {
		logger.Info("health endpoint disabled")
	}
	if c.Metrics.Address != "" {
		if metricsLis, err = net.Listen("tcp", c.Metrics.Address); err != nil {
			if healthLis != nil {
				healthLis.Close()
			}
			return fmt.Errorf("metrics listen on %s: %w", c.Metrics.Address, err)
		}
	} else {
		logger.Info("metrics HTTP server disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	if healthLis != nil {
		g.Go(func() error {
			return serveHealth(gctx, healthLis, hs, logger)
		})
	}
	if metricsLis != nil {
		g.Go(func() error {
			return serveMetrics(gctx, metricsLis, reg, logger)
		})
	}
	g.Go(func() error {
		defer hs.Shutdown()
		return m.Run(gctx)
	})

	return g.Wait()
}

func setHealth(hs *health.Server, err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(HealthService, status)
}

// listenUnix replaces any stale socket at path and listens on it.
func listenUnix(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}
	lis, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o660); err != nil {
		lis.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return lis, nil
}

func serveHealth(ctx context.Context, lis net.Listener, hs *health.Server, logger *slog.Logger) error {
	srv := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(logger)))
	healthpb.RegisterHealthServer(srv, hs)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("health server listening", "socket", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down health server")
		srv.GracefulStop()
		return nil
	case err := <-errCh:
		return fmt.Errorf("health server: %w", err)
	}
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

func serveMetrics(ctx context.Context, lis net.Listener, reg *prometheus.Registry, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           metricsHandler(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics HTTP server listening", "address", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

// loggingInterceptor logs failed RPCs.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.DebugContext(ctx, "grpc error", "method", info.FullMethod, "error", err)
		}
		return resp, err
	}
}
