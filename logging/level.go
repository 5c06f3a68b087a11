// Package logging builds the slog loggers used by pagecache.
//
// Verbosity is controlled by a spec string: a base level optionally
// followed by per-component overrides, for example
// "info,monitor=debug,store=warn". Loggers tag themselves with a
// "component" attribute and the filtering handler applies the matching
// level.
package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level extends slog's levels with a trace level below debug.
// Debug through error share their values with slog.
type Level int

const (
	LevelTrace Level = -8
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// ParseLevel parses trace, debug, info, warn or error, ignoring case
// and surrounding space. "warning" and "err" are accepted as aliases.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error", "err":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

// ToSlog converts l to a slog.Level.
func (l Level) ToSlog() slog.Level {
	return slog.Level(l)
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}
