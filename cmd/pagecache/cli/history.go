package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/frobware/go-pagecache/store"
	"github.com/frobware/go-pagecache/store/sqlite"
)

// HistoryCmd lists recorded samples, newest first.
type HistoryCmd struct {
	OutputFlags
	Limit int           `short:"n" help:"Maximum number of samples (0 for all)." default:"20"`
	RunID uuid.UUID     `name:"run" help:"Only samples from this monitor run."`
	Since time.Duration `name:"since" help:"Only samples newer than this age."`
}

// Run executes the history command.
func (c *HistoryCmd) Run(cli *CLI) error {
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

	now := time.Now()
	opts := store.ListOptions{Limit: c.Limit, RunID: c.RunID}
	if c.Since > 0 {
		opts.Since = now.Add(-c.Since)
	}

	samples, err := st.ListSamples(ctx, opts)
	if err != nil {
		return err
	}

	out, err := FormatSamples(samples, &c.OutputFlags, now)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(cli.stdout(), out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
