package metadata

import (
	"fmt"
	"strconv"
)

// Field describes one registered metadata field: its canonical (human
// readable) and wire (lowerCamelCase) names, default value, and the
// serialize/deserialize pair that moves it across the wire. Derive, when
// set, computes the effective value from the whole Metadata instead of the
// stored one; it exists for extensions and is unused by any default field.
type Field struct {
	Name        string
	Wire        string
	Default     func() interface{}
	Serialize   func(interface{}) interface{}
	Deserialize func(interface{}) (interface{}, error)
	Derive      func(m *Metadata, stored interface{}) interface{}
}

// registry is the process-wide, insertion-ordered field list. It is a
// write-once builder: RegisterField is meant to run from package init
// functions before any Metadata is constructed, never afterwards.
var registry []*Field

// RegisterField adds a field to the process-wide registry. Safe to call
// from an init function only; the dispatch contract treats the registry as
// read-only once the process has started serving requests.
func RegisterField(f *Field) {
	registry = append(registry, f)
}

// Fields returns the registered fields in registration order.
func Fields() []*Field {
	out := make([]*Field, len(registry))
	copy(out, registry)
	return out
}

// FindField looks a field up by either its canonical or wire name.
func FindField(name string) (*Field, bool) {
	for _, f := range registry {
		if f.Name == name || f.Wire == name {
			return f, true
		}
	}
	return nil, false
}

func passthroughString(v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

func identity(v interface{}) interface{} { return v }

// coerceFloat64Ptr implements the numeric coercion rule: a string input
// parses to the number; any Go numeric type converts directly; nil stays
// unset.
func coerceFloat64Ptr(v interface{}) (interface{}, error) {
	if v == nil {
		return (*float64)(nil), nil
	}
	f, err := coerceFloat64(v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func coerceFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as a number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to a number", v)
	}
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

func serializeFloat64Ptr(v interface{}) interface{} {
	p, _ := v.(*float64)
	if p == nil {
		return nil
	}
	return *p
}

func coerceOptionalStringPtr(v interface{}) (interface{}, error) {
	if v == nil {
		return (*string)(nil), nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", v)
	}
	return &s, nil
}

func serializeOptionalStringPtr(v interface{}) interface{} {
	p, _ := v.(*string)
	if p == nil {
		return nil
	}
	return *p
}
