package syncx

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// CoerceUUID accepts a uuid.UUID or anything whose rendering parses as one.
func CoerceUUID(v any) (uuid.UUID, error) {
	if id, ok := v.(uuid.UUID); ok {
		return id, nil
	}
	if v == nil {
		return uuid.Nil, fmt.Errorf("missing uuid")
	}
	id, err := uuid.Parse(Render(v))
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed uuid %q", Render(v))
	}
	return id, nil
}

// CoerceInt accepts JSON numbers, ints and numeric strings.
func CoerceInt(v any) (int, error) {
	switch x := v.(type) {
	case float64:
		return int(x), nil
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("non-numeric value %v", v)
	}
}

// CoerceFloat accepts JSON numbers, ints and numeric strings.
func CoerceFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("non-numeric value %v", v)
	}
}
