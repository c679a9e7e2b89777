package mcpservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/mcp"
)

// validateArguments checks raw tool arguments against the reflected schema:
// the payload must be an object, required properties must be present, enum
// properties must hold a listed value and, unless additional properties are
// allowed, no unknown property may appear. Type checks are left to decoding.
func validateArguments(schema mcp.ToolInputSchema, raw json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return fmt.Errorf("arguments must be a JSON object")
	}

	var missing []string
	for _, name := range schema.Required {
		v, ok := obj[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		prop, known := schema.Properties[name]
		if !known {
			if !schema.AdditionalProperties {
				return fmt.Errorf("unknown field %q", name)
			}
			continue
		}
		if err := checkEnum(name, prop, obj[name]); err != nil {
			return err
		}
	}
	return nil
}

func checkEnum(name string, prop mcp.SchemaProperty, raw json.RawMessage) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if len(prop.Enum) > 0 && !enumContains(prop.Enum, raw) {
		return fmt.Errorf("field %q must be one of %s", name, formatEnum(prop.Enum))
	}
	if prop.Type == "array" && prop.Items != nil && len(prop.Items.Enum) > 0 {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("field %q must be an array", name)
		}
		for _, it := range items {
			if !enumContains(prop.Items.Enum, it) {
				return fmt.Errorf("field %q items must be one of %s", name, formatEnum(prop.Items.Enum))
			}
		}
	}
	return nil
}

// enumContains compares by canonical JSON encoding so that 1 and 1.0 or
// differently spaced strings compare equal.
func enumContains(enum []any, raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	got, err := json.Marshal(v)
	if err != nil {
		return false
	}
	for _, e := range enum {
		want, err := json.Marshal(normalize(e))
		if err == nil && bytes.Equal(got, want) {
			return true
		}
	}
	return false
}

func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func formatEnum(enum []any) string {
	parts := make([]string, len(enum))
	for i, e := range enum {
		parts[i] = fmt.Sprint(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
