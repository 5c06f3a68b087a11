package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/frobware/go-pagecache/config"
	"github.com/frobware/go-pagecache/server"
)

// MonitorCmd runs the TTL monitor daemon. Flags left unset keep the
// config file value.
type MonitorCmd struct {
	TmpDir         string        `name:"tmp-dir" help:"Directory for sentinel files (must exist; use a disk-backed filesystem)." type:"path"`
	Interval       time.Duration `name:"interval" help:"Delay between ticks."`
	MaxWindow      time.Duration `name:"max-window" help:"Maximum sentinel age tracked."`
	Statsd         bool          `name:"statsd" help:"Send the gauge to DogStatsD."`
	StatsdAddress  string        `name:"statsd-address" help:"DogStatsD address (host:port or unix:///path)."`
	MetricsAddress string        `name:"metrics-address" help:"Serve Prometheus /metrics on this address."`
	HealthSocket   string        `name:"health-socket" help:"Serve gRPC health on this unix socket." type:"path"`
	LockFile       string        `name:"lock-file" help:"Single-instance lock file." type:"path"`
	LockWait       time.Duration `name:"lock-wait" help:"How long to wait for another monitor to exit." default:"0s"`
	Stdout         bool          `name:"stdout" help:"Print each sample as a JSON line on stdout."`
	NoStore        bool          `name:"no-store" help:"Do not record samples in the database."`
}

func (c *MonitorCmd) apply(cfg *config.Config) {
	if c.TmpDir != "" {
		cfg.Monitor.TmpDir = c.TmpDir
	}
	if c.Interval != 0 {
		cfg.Monitor.Interval = c.Interval
	}
	if c.MaxWindow != 0 {
		cfg.Monitor.MaxTimeWindow = c.MaxWindow
	}
	if c.Statsd {
		cfg.Metrics.StatsdEnabled = true
	}
	if c.StatsdAddress != "" {
		cfg.Metrics.StatsdAddress = c.StatsdAddress
	}
	if c.MetricsAddress != "" {
		cfg.Metrics.Address = c.MetricsAddress
	}
	if c.HealthSocket != "" {
		cfg.Health.Enabled = true
		cfg.Health.Socket = c.HealthSocket
	}
	if c.LockFile != "" {
		cfg.Monitor.LockFile = c.LockFile
	}
	if c.Stdout {
		cfg.Metrics.Stdout = true
	}
	if c.NoStore {
		cfg.Store.Enabled = false
	}
}

// Run executes the monitor command.
func (c *MonitorCmd) Run(cli *CLI) error {
	cfg, err := cli.LoadConfig(c.apply)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := cli.LoggerFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer closer.Close()

	// Create context that cancels on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return server.Run(ctx, server.RunConfig{
		Config:   cfg,
		Stdout:   cli.stdout(),
		LockWait: c.LockWait,
		Logger:   logger,
	})
}
