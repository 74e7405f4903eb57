// Package template resolves {{node.field}} references in node configuration
// against the outputs of nodes that already ran.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
)

var tokenPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Resolve returns a copy of config where every {{ref.path}} token inside
// string values is replaced by the referenced upstream value. Nested maps are
// resolved recursively. Slices are copied as-is and their elements are not
// inspected. Tokens that cannot be resolved are left verbatim.
func Resolve(config map[string]any, outputs *Outputs) map[string]any {
	resolved := make(map[string]any, len(config))

	for key, value := range config {
		switch v := value.(type) {
		case string:
			resolved[key] = ResolveString(v, outputs)
		case map[string]any:
			resolved[key] = Resolve(v, outputs)
		default:
			resolved[key] = value
		}
	}

	return resolved
}

// ResolveString substitutes every token found in s.
func ResolveString(s string, outputs *Outputs) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		ref := strings.TrimSpace(tokenPattern.FindStringSubmatch(token)[1])

		value, ok := Lookup(ref, outputs)
		if !ok {
			return token
		}

		return Stringify(value)
	})
}

// Lookup finds the value addressed by ref ("node.field.sub"). The node part
// matches a recorded node id exactly, or else the earliest recorded node id
// starting with it, so "trigger" finds "trigger_1".
func Lookup(ref string, outputs *Outputs) (any, bool) {
	parts := strings.Split(ref, ".")
	if len(parts) < 2 || outputs == nil {
		return nil, false
	}

	output, ok := findNode(parts[0], outputs)
	if !ok {
		return nil, false
	}

	var value any = map[string]any(output)

	for _, field := range parts[1:] {
		next, found := fieldOf(value, field)
		if !found {
			return nil, false
		}

		value = next
	}

	return value, true
}

func findNode(ref string, outputs *Outputs) (models.NodeOutput, bool) {
	if out, ok := outputs.Get(ref); ok {
		return out, true
	}

	for _, id := range outputs.Keys() {
		if strings.HasPrefix(id, ref) {
			return outputs.Get(id)
		}
	}

	return nil, false
}

func fieldOf(value any, name string) (any, bool) {
	switch m := value.(type) {
	case map[string]any:
		v, ok := m[name]

		return v, ok
	case models.NodeOutput:
		v, ok := m[name]

		return v, ok
	default:
		return nil, false
	}
}

// Stringify renders a resolved value for splicing into a string.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case json.Number:
		return v.String()
	case map[string]any, models.NodeOutput, []any, []string:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
