package logging

import (
	"context"
	"log/slog"
)

// ComponentKey is the attribute that selects a component's level.
const ComponentKey = "component"

// filteringHandler drops records below the level the Spec assigns to
// the handler's component. The component is picked up from a
// "component" attribute added with Logger.With.
type filteringHandler struct {
	inner     slog.Handler
	spec      *Spec
	component string
	level     slog.Level
}

// NewFilteringHandler wraps inner with component-level filtering.
func NewFilteringHandler(inner slog.Handler, spec *Spec) slog.Handler {
	return &filteringHandler{
		inner: inner,
		spec:  spec,
		level: spec.BaseLevel.ToSlog(),
	}
}

func (h *filteringHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *filteringHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := &filteringHandler{
		inner:     h.inner.WithAttrs(attrs),
		spec:      h.spec,
		component: h.component,
		level:     h.level,
	}
	for _, attr := range attrs {
		if attr.Key == ComponentKey {
			nh.component = attr.Value.String()
			nh.level = h.spec.LevelFor(nh.component).ToSlog()
			break
		}
	}
	return nh
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{
		inner:     h.inner.WithGroup(name),
		spec:      h.spec,
		component: h.component,
		level:     h.level,
	}
}
