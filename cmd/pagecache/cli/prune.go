package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/frobware/go-pagecache/store/sqlite"
)

// PruneCmd deletes samples older than a cutoff.
type PruneCmd struct {
	OlderThan time.Duration `name:"older-than" help:"Delete samples older than this age." default:"168h"`
}

// Run executes the prune command.
func (c *PruneCmd) Run(cli *CLI) error {
	if c.OlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive, got %s", c.OlderThan)
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, closer, err := cli.Logger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer closer.Close()

	ctx := context.Background()
	st, err := sqlite.New(ctx, cfg.Store.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open store at %s: %w", cfg.Store.DBPath, err)
	}
	defer st.Close()

	n, err := st.PruneSamples(ctx, time.Now().Add(-c.OlderThan))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cli.stdout(), "Pruned %d samples\n", n)
	return err
}
