package cli

import (
	"io"
	"log/slog"
	"os"
	"reflect"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/frobware/go-pagecache/config"
	"github.com/frobware/go-pagecache/logging"
)

// CLI is the root command structure for pagecache.
type CLI struct {
	Config  string `name:"config" help:"Config file path." default:"${default_config_path}"`
	Log     string `name:"log" help:"Log spec (e.g., 'info,monitor=debug')." env:"PAGECACHE_LOG"`
	LogFile string `name:"log-file" help:"Also append logs to this file."`
	DB      string `name:"db" help:"SQLite database path (overrides store.db_path)."`

	Ratio   RatioCmd   `cmd:"" help:"Report the fraction of each file's pages in the page cache."`
	Monitor MonitorCmd `cmd:"" help:"Run the page cache TTL monitor."`
	History HistoryCmd `cmd:"" help:"List recorded monitor samples."`
	Prune   PruneCmd   `cmd:"" help:"Delete recorded samples older than a cutoff."`

	// Out receives command output. Defaults to os.Stdout.
	Out io.Writer `kong:"-"`
	// Err receives log output. Defaults to os.Stderr.
	Err io.Writer `kong:"-"`
}

// KongOptions returns the Kong configuration options for the CLI.
func KongOptions() []kong.Option {
	return []kong.Option{
		kong.Name("pagecache"),
		kong.Description("Page cache residency probe and TTL monitor."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.TypeMapper(reflect.TypeOf(uuid.UUID{}), uuidMapper()),
		kong.Vars{
			"default_config_path": config.DefaultConfigPath,
		},
	}
}

func (c *CLI) stdout() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *CLI) stderr() io.Writer {
	if c.Err != nil {
		return c.Err
	}
	return os.Stderr
}

// LoadConfig loads the config file, applies the global flags and any
// command-specific overrides, then resolves and validates the result.
func (c *CLI) LoadConfig(overrides ...func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return cfg, err
	}
	if c.DB != "" {
		cfg.Store.DBPath = c.DB
	}
	if c.LogFile != "" {
		cfg.Logging.File = c.LogFile
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Resolve(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Logger creates a logger for one-shot commands. They default to WARN
// on stderr unless --log says otherwise.
func (c *CLI) Logger(cfg config.Config) (*slog.Logger, io.Closer, error) {
	spec := c.Log
	if spec == "" {
		spec = "warn"
	}
	return c.newLogger(cfg, spec, c.stderr())
}

// LoggerFromConfig creates a logger for the monitor daemon, honouring
// the configured level. Logs go to stderr so that --stdout samples are
// the only thing written to stdout.
func (c *CLI) LoggerFromConfig(cfg config.Config) (*slog.Logger, io.Closer, error) {
	return c.newLogger(cfg, c.Log, c.stderr())
}

func (c *CLI) newLogger(cfg config.Config, spec string, out io.Writer) (*slog.Logger, io.Closer, error) {
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(logging.Options{
		CLISpec:    spec,
		ConfigSpec: cfg.Logging.ToSpec(),
		Format:     format,
		Output:     out,
		File:       cfg.Logging.File,
	})
}
