package monitor

import (
	"context"
	"log/slog"
)

type tickKey struct{}

// contextWithTick returns a context carrying the tick sequence number.
func contextWithTick(ctx context.Context, tick uint64) context.Context {
	return context.WithValue(ctx, tickKey{}, tick)
}

// tickFromContext returns the tick number, or 0 outside a tick.
func tickFromContext(ctx context.Context) uint64 {
	if v, ok := ctx.Value(tickKey{}).(uint64); ok {
		return v
	}
	return 0
}

// tickHandler adds the tick number from the context to every record
// logged with the *Context methods.
type tickHandler struct {
	slog.Handler
}

func (h tickHandler) Handle(ctx context.Context, r slog.Record) error {
	if tick := tickFromContext(ctx); tick != 0 {
		r.AddAttrs(slog.Uint64("tick", tick))
	}
	return h.Handler.Handle(ctx, r)
}

func (h tickHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return tickHandler{h.Handler.WithAttrs(attrs)}
}

func (h tickHandler) WithGroup(name string) slog.Handler {
	return tickHandler{h.Handler.WithGroup(name)}
}

func withTickHandler(logger *slog.Logger) *slog.Logger {
	return slog.New(tickHandler{logger.Handler()})
}
