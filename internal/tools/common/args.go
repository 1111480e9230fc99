package common

import (
	"fmt"
	"math"
	"strings"
)

// IntArg reads a non-negative integer argument. JSON numbers arrive as
// float64; fractional values are rejected.
func IntArg(args map[string]any, name string) (value int, ok bool, err error) {
	raw, present := args[name]
	if !present || raw == nil {
		return 0, false, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, false, fmt.Errorf("%s must be a number", name)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return int(f), true, nil
}

// BoolArg reads a boolean argument.
func BoolArg(args map[string]any, name string) (value bool, ok bool) {
	v, ok := args[name].(bool)
	return v, ok
}

// StringSliceArg reads an array of strings or a comma-separated string.
func StringSliceArg(args map[string]any, name string) ([]string, error) {
	raw, present := args[name]
	if !present || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be an array of strings", name)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must be an array of strings", name)
}
