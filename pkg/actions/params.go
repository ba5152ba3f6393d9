package actions

import (
	"fmt"
	"time"

	"github.com/calewin/fieldhand/pkg/core"
	"gopkg.in/yaml.v3"
)

// Params wraps a step's raw parameter map with typed accessors. YAML numbers
// arrive as int or float64 depending on how they were written, so the
// numeric readers accept both.
type Params map[string]any

// String returns a required string parameter.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing required param %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %q must be a string, got %T", key, v)
	}
	return s, nil
}

// StringOr returns a string parameter or def when absent.
func (p Params) StringOr(key, def string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return def
}

// IntOr returns an integer parameter or def when absent.
func (p Params) IntOr(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// BoolOr returns a boolean parameter or def when absent.
func (p Params) BoolOr(key string, def bool) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	return def
}

// SecondsOr reads a numeric parameter expressed in seconds.
func (p Params) SecondsOr(key string, def time.Duration) time.Duration {
	switch v := p[key].(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}

// StringSlice reads a parameter that may be a single string or a list of
// strings.
func (p Params) StringSlice(key string) ([]string, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing required param %q", key)
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("param %q element %d must be a string, got %T", key, i, e)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return t, nil
	default:
		return nil, fmt.Errorf("param %q must be a string or list of strings, got %T", key, v)
	}
}

// Steps decodes a parameter holding a nested step list, as used by the
// conditional action's then/else branches. Round-tripping through YAML keeps
// the decoding rules identical to the top-level workflow parser.
func (p Params) Steps(key string) ([]core.Step, error) {
	v, ok := p[key]
	if !ok {
		return nil, nil
	}
	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding param %q: %w", key, err)
	}
	var steps []core.Step
	if err := yaml.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("param %q is not a step list: %w", key, err)
	}
	return steps, nil
}
