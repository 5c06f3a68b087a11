package logging

import (
	"fmt"
	"sort"
	"strings"
)

// Spec is a parsed log spec: a base level plus component overrides.
//
// Format: "<base-level>[,<component>=<level>]..."
//
//   - "info"
//   - "warn,monitor=debug"
//   - "info,monitor=debug,store=trace"
type Spec struct {
	BaseLevel  Level
	Components map[string]Level
}

// ParseSpec parses a log spec. The empty string yields info with no
// overrides. A bare level is only accepted as the first element.
func ParseSpec(s string) (Spec, error) {
	spec := Spec{
		BaseLevel:  LevelInfo,
		Components: make(map[string]Level),
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return spec, nil
	}

	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		component, levelStr, ok := strings.Cut(part, "=")
		if !ok {
			if i != 0 {
				return spec, fmt.Errorf("base level %q must be first in spec", part)
			}
			level, err := ParseLevel(part)
			if err != nil {
				return spec, err
			}
			spec.BaseLevel = level
			continue
		}

		component = strings.TrimSpace(component)
		if component == "" {
			return spec, fmt.Errorf("empty component name in %q", part)
		}
		level, err := ParseLevel(levelStr)
		if err != nil {
			return spec, fmt.Errorf("invalid level for component %q: %w", component, err)
		}
		spec.Components[component] = level
	}

	return spec, nil
}

// LevelFor returns the level configured for component, falling back to
// the base level.
func (s *Spec) LevelFor(component string) Level {
	if level, ok := s.Components[component]; ok {
		return level
	}
	return s.BaseLevel
}

// String renders the spec in parseable form with components sorted.
func (s *Spec) String() string {
	names := make([]string, 0, len(s.Components))
	for name := range s.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := []string{s.BaseLevel.String()}
	for _, name := range names {
		parts = append(parts, name+"="+s.Components[name].String())
	}
	return strings.Join(parts, ",")
}
