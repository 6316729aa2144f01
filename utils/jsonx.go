package utils

import (
	"encoding/json"
	"strings"
)

// ============================================================================
// RESILIENT JSON-ISH PARSING
// The model is asked for strict JSON but routinely wraps it in prose or
// markdown fences, truncates it, or nests the array under a different key.
// Both AI-consuming components parse through here so the fallbacks stay in
// one place.
// ============================================================================

// SafeParseAny parses raw as JSON. On failure it scans for the outermost
// `{...}` (then `[...]`) substring and retries. Returns nil when nothing in
// the text parses.
func SafeParseAny(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed
	}

	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(raw, pair[0])
		end := strings.LastIndex(raw, pair[1])
		if start == -1 || end == -1 || end <= start {
			continue
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err == nil {
			return parsed
		}
	}

	return nil
}

// ExtractItemsArray pulls the row list out of whatever shape the model chose:
// a bare array, an object with an "items" or "results" array, or an object
// whose "items" is itself an object keyed by id. Non-object rows are dropped.
// Any other shape yields an empty slice.
func ExtractItemsArray(parsed any) []map[string]any {
	if parsed == nil {
		return nil
	}

	switch v := parsed.(type) {
	case []any:
		return objectRows(v)
	case map[string]any:
		for _, key := range []string{"items", "results"} {
			switch inner := v[key].(type) {
			case []any:
				return objectRows(inner)
			case map[string]any:
				rows := make([]any, 0, len(inner))
				for _, r := range inner {
					rows = append(rows, r)
				}
				return objectRows(rows)
			}
		}
	}

	return nil
}

func objectRows(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// ============================================================================
// UNTRUSTED VALUE COERCION
// Model output is never trusted: wrong types coerce to nil/false, not to a
// zero value that could be mistaken for data.
// ============================================================================

// AsNumber returns the value as a float64 if it is a JSON number, nil
// otherwise.
func AsNumber(x any) *float64 {
	if f, ok := x.(float64); ok {
		return &f
	}
	return nil
}

// AsString returns the value as a trimmed, non-empty string, nil otherwise.
func AsString(x any) *string {
	if s, ok := x.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return &s
		}
	}
	return nil
}

// AsBool returns the value if it is a JSON boolean, nil otherwise.
func AsBool(x any) *bool {
	if b, ok := x.(bool); ok {
		return &b
	}
	return nil
}

// AsStringSlice returns the string elements of a JSON array, nil when the
// value is not an array or holds no strings.
func AsStringSlice(x any) []string {
	arr, ok := x.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CoerceStringID normalizes an id-ish value to a string: strings are trimmed,
// finite numbers are formatted without a fractional part when integral.
// Returns empty string for anything else.
func CoerceStringID(x any) string {
	switch v := x.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		b, _ := json.Marshal(v)
		return string(b)
	}
	return ""
}
