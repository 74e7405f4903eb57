// Package nodes holds the configuration helpers shared by the built-in node
// implementations. Node configs arrive as decoded JSON or YAML, already
// resolved, so values may be strings where a richer type is expected.
package nodes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// String returns config[key] as a string, or def when missing or nil.
func String(config map[string]any, key, def string) string {
	v, ok := config[key]
	if !ok || v == nil {
		return def
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

// Float returns config[key] parsed as a number, or def.
func Float(config map[string]any, key string, def float64) float64 {
	if f, ok := ToFloat(config[key]); ok {
		return f
	}

	return def
}

// Int returns config[key] parsed as an integer, or def.
func Int(config map[string]any, key string, def int) int {
	if f, ok := ToFloat(config[key]); ok {
		return int(f)
	}

	return def
}

// ToFloat converts numbers and numeric strings.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

// List returns config[key] as a list of strings. It accepts a list, a JSON
// encoded list, or a comma separated string; blank entries are dropped.
func List(config map[string]any, key string) []string {
	var raw []any

	switch v := config[key].(type) {
	case nil:
		return nil
	case []any:
		raw = v
	case []string:
		for _, s := range v {
			raw = append(raw, s)
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") && json.Unmarshal([]byte(trimmed), &raw) == nil {
			break
		}

		for _, part := range strings.Split(v, ",") {
			raw = append(raw, part)
		}
	default:
		raw = []any{v}
	}

	out := make([]string, 0, len(raw))

	for _, item := range raw {
		s := strings.TrimSpace(listItem(item))
		if s != "" {
			out = append(out, s)
		}
	}

	return out
}

func listItem(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	return fmt.Sprint(v)
}

// Object returns config[key] as a map. JSON strings are decoded; anything
// that is not an object yields nil and false.
func Object(config map[string]any, key string) (map[string]any, bool) {
	switch v := config[key].(type) {
	case map[string]any:
		return v, true
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, false
		}

		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, false
		}

		return m, true
	default:
		return nil, false
	}
}
