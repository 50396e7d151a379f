package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToOptionalInt parses s as a non-negative int.
// An empty string yields nil; a malformed or negative value is an error.
func ToOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if i < 0 {
		return nil, fmt.Errorf("negative integer %q", s)
	}
	return &i, nil
}

// ToBool reads a query or config flag.
// "1", "true" and "yes" are true in any case; integers are true when 1.
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "true" || s == "yes"
	case []byte:
		return ToBool(string(v))
	case int, int64, int32, uint, uint64, uint32:
		return fmt.Sprint(v) == "1"
	default:
		return false
	}
}
