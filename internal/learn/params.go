package learn

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Params are hyper-parameters keyed by name. Values come either from Go
// literals or from a decoded YAML grid, so accessors accept the numeric
// representations of both.
type Params map[string]any

// Int returns an integer parameter or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	return toInt(key, v)
}

// Float returns a float parameter or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	}
	return 0, fmt.Errorf("param %s: expected number, got %T", key, v)
}

// Text returns a string parameter or def when absent.
func (p Params) Text(key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s: expected string, got %T", key, v)
	}
	return s, nil
}

// Bool returns a boolean parameter or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %s: expected bool, got %T", key, v)
	}
	return b, nil
}

// Ints returns an integer list parameter. A scalar is a one-element list.
func (p Params) Ints(key string, def []int) ([]int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case []int:
		return append([]int(nil), t...), nil
	case []any:
		out := make([]int, len(t))
		for i, e := range t {
			n, err := toInt(key, e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	n, err := toInt(key, v)
	if err != nil {
		return nil, err
	}
	return []int{n}, nil
}

// Canonical renders the parameters with sorted keys. It is stable across
// runs and is used in logs and reports.
func (p Params) Canonical() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, " ")
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func toInt(key string, v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		if t == math.Trunc(t) {
			return int(t), nil
		}
	}
	return 0, fmt.Errorf("param %s: expected integer, got %v (%T)", key, v, v)
}
