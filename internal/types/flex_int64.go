package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt64 is an int64 that can be unmarshaled from either a JSON number or a JSON string.
// Browsers send millisecond timestamps and form values both ways.
type FlexInt64 int64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt64(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		val, err := ParseFlexInt64(s)
		if err != nil {
			return err
		}
		*f = val
		return nil
	}

	return fmt.Errorf("FlexInt64: unexpected type, expected number or string")
}

// ParseFlexInt64 parses a decimal string, treating blank as zero
func ParseFlexInt64(s string) (FlexInt64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("FlexInt64: invalid int64 string %q: %w", s, err)
	}
	return FlexInt64(val), nil
}

// Int64 converts FlexInt64 back to int64.
func (f FlexInt64) Int64() int64 {
	return int64(f)
}
