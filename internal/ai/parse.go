package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"storyforge.app/api/internal/common"
)

// DefaultFieldValue fills fields the model left out.
const DefaultFieldValue = "Unknown"

// ExtractJSONObject returns the first balanced {...} in text, skipping braces
// inside JSON strings. Models often wrap JSON in prose or code fences.
func ExtractJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > 0 {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ParseDraft turns a free-form model answer into a Draft. When no JSON
// object can be read, every field gets its default and Fallback is set.
func ParseDraft(kind common.Kind, text string) *Draft {
	d := &Draft{Kind: kind, Fields: make(map[string]string, len(kind.Fields()))}

	var raw map[string]any
	if obj, ok := ExtractJSONObject(text); ok {
		_ = json.Unmarshal([]byte(obj), &raw)
	}
	if raw == nil {
		d.Fallback = true
		raw = map[string]any{}
	}

	d.Name = stringValue(raw["name"])
	if d.Name == "" {
		d.Name = defaultName(kind)
	}
	d.Summary = stringValue(raw["summary"])
	if d.Summary == "" && d.Fallback {
		d.Summary = common.Truncate(strings.TrimSpace(text), 500)
	}
	for _, f := range kind.Fields() {
		v := stringValue(raw[f])
		if v == "" {
			v = DefaultFieldValue
		}
		d.Fields[f] = v
	}
	return d
}

func defaultName(kind common.Kind) string {
	return "Unnamed " + strings.ToUpper(string(kind[:1])) + string(kind[1:])
}

// stringValue flattens whatever the model put in a field into text.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}
