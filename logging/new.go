package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvVar names the environment variable holding a log spec.
const EnvVar = "PAGECACHE_LOG"

// Format is the log output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses "text" or "json"; empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format: %q", s)
	}
}

// Options configures New.
type Options struct {
	// CLISpec comes from --log and wins over everything else.
	CLISpec string
	// EnvSpec comes from PAGECACHE_LOG.
	EnvSpec string
	// ConfigSpec comes from the config file.
	ConfigSpec string
	Format     Format
	// Output defaults to os.Stdout.
	Output io.Writer
	// File, when set, receives a copy of every record. It is opened
	// for append and created if missing.
	File string
}

// New returns a logger with component-level filtering. The closer it
// returns releases the log file, if any, and is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	specStr := ""
	switch {
	case opts.CLISpec != "":
		specStr = opts.CLISpec
	case opts.EnvSpec != "":
		specStr = opts.EnvSpec
	case opts.ConfigSpec != "":
		specStr = opts.ConfigSpec
	}

	spec, err := ParseSpec(specStr)
	if err != nil {
		return nil, nopCloser{}, fmt.Errorf("invalid log spec: %w", err)
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		output = io.MultiWriter(output, f)
		closer = f
	}

	// The filtering handler decides; the inner handler accepts all.
	handlerOpts := &slog.HandlerOptions{Level: LevelTrace.ToSlog()}

	var inner slog.Handler
	switch opts.Format {
	case FormatJSON:
		inner = slog.NewJSONHandler(output, handlerOpts)
	default:
		inner = slog.NewTextHandler(output, handlerOpts)
	}

	return slog.New(NewFilteringHandler(inner, &spec)), closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
