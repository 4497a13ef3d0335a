// sanitize.go implements recursive redaction of sensitive keys in notice data.

package errwatch

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

const (
	// FilteredMarker replaces values whose key matches a filter key, and any
	// value nested deeper than MaxSanitizeDepth.
	FilteredMarker = "[FILTERED]"

	// TruncatedMarker is appended to strings cut down to MaxStringLength.
	TruncatedMarker = "...[TRUNCATED]"

	// MaxStringLength is the longest string (in characters) that survives
	// sanitization unchanged.
	MaxStringLength = 10000

	// MaxSanitizeDepth is the deepest nesting level that is still traversed.
	MaxSanitizeDepth = 10
)

// Sanitizer deep-copies arbitrary nested data, replacing values stored under
// sensitive keys with FilteredMarker. A Sanitizer is immutable and safe for
// concurrent use.
type Sanitizer struct {
	filterKeys []string
}

// NewSanitizer creates a Sanitizer matching the given filter keys. Keys are
// matched case-insensitively as substrings of map keys; blank keys are ignored.
func NewSanitizer(filterKeys []string) *Sanitizer {
	keys := make([]string, 0, len(filterKeys))
	for _, k := range filterKeys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keys = append(keys, k)
		}
	}
	return &Sanitizer{filterKeys: keys}
}

// Sanitize returns a sanitized deep copy of v. The input is never modified.
func (s *Sanitizer) Sanitize(v any) any {
	return s.sanitize(v, 0)
}

// SanitizeMap is Sanitize for the common map case. A nil map yields an empty one.
func (s *Sanitizer) SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out, ok := s.sanitize(m, 0).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return out
}

// IsFiltered reports whether a map key matches any configured filter key.
func (s *Sanitizer) IsFiltered(key string) bool {
	if s == nil || len(s.filterKeys) == 0 {
		return false
	}
	lower := strings.ToLower(key)
	for _, k := range s.filterKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (s *Sanitizer) sanitize(v any, depth int) any {
	if depth > MaxSanitizeDepth {
		return FilteredMarker
	}

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return truncateWithMarker(val, MaxStringLength, TruncatedMarker)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = s.sanitizeEntry(k, item, depth)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = s.sanitizeEntry(k, item, depth)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.sanitize(item, depth+1)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.sanitize(item, depth+1)
		}
		return out
	}

	return s.sanitizeReflect(v, depth)
}

func (s *Sanitizer) sanitizeEntry(key string, v any, depth int) any {
	if s.IsFiltered(key) {
		return FilteredMarker
	}
	return s.sanitize(v, depth+1)
}

// sanitizeReflect handles containers that are not one of the fast-path types,
// such as map[string]int or []map[string]any.
func (s *Sanitizer) sanitizeReflect(v any, depth int) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return map[string]any{}
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			out[key] = s.sanitizeEntry(key, iter.Value().Interface(), depth)
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = s.sanitize(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		// Each dereference counts as a level so pointer cycles hit the ceiling.
		return s.sanitize(rv.Elem().Interface(), depth+1)
	case reflect.String:
		return truncateWithMarker(rv.String(), MaxStringLength, TruncatedMarker)
	}
	return v
}

// truncateWithMarker cuts s to exactly maxLen characters, the last of which
// are marker. Strings within the limit are returned unchanged.
func truncateWithMarker(s string, maxLen int, marker string) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	markerLen := utf8.RuneCountInString(marker)
	if maxLen <= markerLen {
		return string([]rune(marker)[:maxLen])
	}
	return string([]rune(s)[:maxLen-markerLen]) + marker
}
