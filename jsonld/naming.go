package jsonld

import (
	"errors"
	"strings"
	"unicode"
)

var (
	errEmptyGraph = errors.New("document expanded to an empty graph")
	errNoType     = errors.New("document has no @type")
)

// CamelToSnake rewrites a wire field name to the internal convention.
// The transform is the inverse of SnakeToCamel, so round-tripping a name
// through both is the identity.
func CamelToSnake(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SnakeToCamel rewrites an internal field name back to the wire
// convention.
func SnakeToCamel(s string) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WireToInternal deep-copies a document, rewriting every field name from
// camelCase to snake_case. JSON-LD keywords (@context, @id, @type) pass
// through untouched.
func WireToInternal(doc map[string]interface{}) map[string]interface{} {
	return transformKeys(doc, CamelToSnake).(map[string]interface{})
}

// InternalToWire is the inverse of WireToInternal.
func InternalToWire(doc map[string]interface{}) map[string]interface{} {
	return transformKeys(doc, SnakeToCamel).(map[string]interface{})
}

func transformKeys(v interface{}, f func(string) string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			key := k
			if !strings.HasPrefix(k, "@") {
				key = f(k)
			}
			out[key] = transformKeys(inner, f)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = transformKeys(inner, f)
		}
		return out
	default:
		return v
	}
}
