// Package quality implements the per-source value and metadata mappers: the
// quality-flag mapper that normalizes backend quality codes into Kukur's
// two-value {GOOD, BAD} domain, and the metadata field-name and field-value
// mappers that translate between a backend's vocabulary and Kukur's
// canonical one.
package quality

import (
	"fmt"
	"strconv"
)

// Good and Bad are the two quality values the dispatcher ever emits,
// matching the int8 {0,1} wire contract for a data table's quality column.
const (
	Bad  int8 = 0
	Good int8 = 1
)

// Mapper maps a source's quality codes to Kukur's {GOOD, BAD} domain. It is
// built once from a source's quality_mapping config section and is
// immutable afterwards.
type Mapper struct {
	goodInts    map[int64]bool
	goodStrings map[string]bool
}

// NewMapper returns an empty mapper: IsPresent is false and every value maps
// to Bad.
func NewMapper() *Mapper {
	return &Mapper{goodInts: map[int64]bool{}, goodStrings: map[string]bool{}}
}

// FromConfig builds a Mapper from a config shaped like
// {"GOOD": [v1, v2, [lo, hi], ...]}: each entry in the GOOD list is either a
// bare numeric or string value, or a two-element [lo, hi] list naming an
// inclusive integer range.
func FromConfig(config map[string]interface{}) (*Mapper, error) {
	m := NewMapper()

	raw, ok := config["GOOD"]
	if !ok {
		return m, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("quality: GOOD must be a list, got %T", raw)
	}

	for _, item := range list {
		switch v := item.(type) {
		case []interface{}:
			if len(v) < 2 {
				return nil, fmt.Errorf("quality: GOOD range entry needs two bounds, got %v", v)
			}
			lo, err := coerceInt64(v[0])
			if err != nil {
				return nil, fmt.Errorf("quality: range lower bound: %w", err)
			}
			hi, err := coerceInt64(v[1])
			if err != nil {
				return nil, fmt.Errorf("quality: range upper bound: %w", err)
			}
			for i := lo; i <= hi; i++ {
				m.goodInts[i] = true
			}
		case string:
			m.goodStrings[v] = true
		default:
			i, err := coerceInt64(v)
			if err != nil {
				return nil, fmt.Errorf("quality: GOOD entry %v: %w", v, err)
			}
			m.goodInts[i] = true
		}
	}
	return m, nil
}

// FromSource maps one backend quality value to Good or Bad.
func (m *Mapper) FromSource(value interface{}) int8 {
	if m.isGood(value) {
		return Good
	}
	return Bad
}

// MapArray maps a whole column of backend quality values at once,
// equivalent to mapping each element with FromSource.
func (m *Mapper) MapArray(values []interface{}) []int8 {
	out := make([]int8, len(values))
	for i, v := range values {
		out[i] = m.FromSource(v)
	}
	return out
}

// IsPresent reports whether any GOOD values were configured.
func (m *Mapper) IsPresent() bool {
	return len(m.goodInts) > 0 || len(m.goodStrings) > 0
}

func (m *Mapper) isGood(value interface{}) bool {
	if s, ok := value.(string); ok {
		return m.goodStrings[s]
	}
	i, err := coerceInt64(value)
	if err != nil {
		return false
	}
	return m.goodInts[i]
}

func coerceInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as an integer", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to an integer", v)
	}
}
