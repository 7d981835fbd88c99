package cipher

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Params carries operation parameters. Values arrive from YAML recipes, JSON
// and protobuf structs, so numbers may be any Go numeric type or a string.
type Params map[string]any

// String returns a string parameter.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// RequireString returns a non-empty string parameter.
func (p Params) RequireString(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidParam, key, v)
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return s, nil
}

// Int returns an integer parameter or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidParam, key, n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidParam, key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidParam, key, v)
	}
}

// RequireInt returns an integer parameter that must be present.
func (p Params) RequireInt(key string) (int, error) {
	if v, ok := p[key]; !ok || v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return p.Int(key, 0)
}

// Strings returns a list parameter. A string value is split on commas.
func (p Params) Strings(key string) ([]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case string:
		var out []string
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string, got %T", ErrInvalidParam, key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a list of strings, got %T", ErrInvalidParam, key, v)
	}
}

// Bool returns a boolean parameter or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %v", ErrInvalidParam, key, err)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidParam, key, v)
	}
}
