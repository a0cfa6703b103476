package syncx

import (
	"fmt"
	"strconv"
)

// Render produces the canonical string form of a value for sync equality
// checks. Operation log snapshots round-trip identifiers as strings, so a
// uuid.UUID and its string form must render identically, as must 123 and
// "123".
func Render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// JSON numbers decode as float64; keep integral values free of a
		// trailing ".0" so they compare equal to ints from the database.
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return Render(float64(x))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ValuesEqual reports whether two values are equal under string rendering.
func ValuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if (a == nil) != (b == nil) {
		return false
	}
	return Render(a) == Render(b)
}

// GetString extracts a string value from a decoded JSON map.
func GetString(m map[string]any, k string) (string, bool) {
	if v, ok := m[k]; ok {
		if s, ok2 := v.(string); ok2 {
			return s, true
		}
	}
	return "", false
}
