package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IDKey is the field every server-assigned identifier lives under.
const IDKey = "id"

// Record is one entity instance as returned by the API, keyed by field name.
// Numbers decoded from the wire are json.Number values.
type Record map[string]any

// ID returns the normalised identifier or "" when the record has none.
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	return IDString(r[IDKey])
}

// HasID reports whether the server assigned an identifier.
func (r Record) HasID() bool {
	return r.ID() != ""
}

// Lookup resolves a dotted path (for example "city.name") into the record.
func (r Record) Lookup(path string) (any, bool) {
	return getPath(r, path)
}

// Text returns the display form of the value at path, or "" when the path is
// missing or null.
func (r Record) Text(path string) string {
	value, ok := r.Lookup(path)
	if !ok {
		return ""
	}
	return Stringify(value)
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = deepCopy(v)
	}
	return out
}

// IDString normalises identifier values to strings so 7, "7" and
// json.Number("7") compare equal.
func IDString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int32:
		return strconv.FormatInt(int64(typed), 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	case map[string]any:
		return IDString(typed[IDKey])
	case Record:
		return typed.ID()
	default:
		return fmt.Sprint(typed)
	}
}

// Stringify renders scalar values for display. Nested objects and lists
// are rendered as JSON.
func Stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	case map[string]any, []any, Record:
		raw, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(raw)
	default:
		return fmt.Sprint(typed)
	}
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case Record:
		return typed.Clone()
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}

func getPath(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	current := any(root)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case Record:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
