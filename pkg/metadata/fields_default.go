package metadata

import (
	"fmt"
	"strings"
)

// The fields below are registered at package init time, in the order spec
// §3 lists them. Extensions can call RegisterField with their own fields
// before any Metadata is built; the registry is otherwise treated as
// read-only for the lifetime of the process.

var (
	Description = &Field{
		Name:        "description",
		Wire:        "description",
		Default:     func() interface{} { return "" },
		Serialize:   identity,
		Deserialize: passthroughString,
	}

	Unit = &Field{
		Name:        "unit",
		Wire:        "unit",
		Default:     func() interface{} { return "" },
		Serialize:   identity,
		Deserialize: passthroughString,
	}

	LimitLow = &Field{
		Name:        "lower limit",
		Wire:        "limitLow",
		Default:     func() interface{} { return (*float64)(nil) },
		Serialize:   serializeFloat64Ptr,
		Deserialize: coerceFloat64Ptr,
	}

	LimitHigh = &Field{
		Name:        "upper limit",
		Wire:        "limitHigh",
		Default:     func() interface{} { return (*float64)(nil) },
		Serialize:   serializeFloat64Ptr,
		Deserialize: coerceFloat64Ptr,
	}

	Accuracy = &Field{
		Name:        "accuracy",
		Wire:        "accuracy",
		Default:     func() interface{} { return (*float64)(nil) },
		Serialize:   serializeFloat64Ptr,
		Deserialize: coerceFloat64Ptr,
	}

	FieldInterpolationType = &Field{
		Name:    "interpolation type",
		Wire:    "interpolationType",
		Default: func() interface{} { return (*InterpolationType)(nil) },
		Serialize: func(v interface{}) interface{} {
			p, _ := v.(*InterpolationType)
			if p == nil {
				return nil
			}
			return string(*p)
		},
		Deserialize: func(v interface{}) (interface{}, error) {
			if v == nil {
				return (*InterpolationType)(nil), nil
			}
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("interpolation type must be a string, got %T", v)
			}
			it := InterpolationType(strings.ToUpper(s))
			if !it.valid() {
				return nil, fmt.Errorf("unknown interpolation type %q", s)
			}
			return &it, nil
		},
	}

	FieldDataType = &Field{
		Name:    "data type",
		Wire:    "dataType",
		Default: func() interface{} { return (*DataType)(nil) },
		Serialize: func(v interface{}) interface{} {
			p, _ := v.(*DataType)
			if p == nil {
				return nil
			}
			return string(*p)
		},
		Deserialize: func(v interface{}) (interface{}, error) {
			if v == nil {
				return (*DataType)(nil), nil
			}
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("data type must be a string, got %T", v)
			}
			dt := DataType(strings.ToUpper(s))
			if !dt.valid() {
				return nil, fmt.Errorf("unknown data type %q", s)
			}
			return &dt, nil
		},
	}

	DictionaryName = &Field{
		Name:        "dictionary name",
		Wire:        "dictionaryName",
		Default:     func() interface{} { return (*string)(nil) },
		Serialize:   serializeOptionalStringPtr,
		Deserialize: coerceOptionalStringPtr,
	}

	FieldDictionary = &Field{
		Name:    "dictionary",
		Wire:    "dictionary",
		Default: func() interface{} { return (*Dictionary)(nil) },
		Serialize: func(v interface{}) interface{} {
			d, _ := v.(*Dictionary)
			if d == nil {
				return nil
			}
			return d.toWire()
		},
		Deserialize: func(v interface{}) (interface{}, error) {
			if v == nil {
				return (*Dictionary)(nil), nil
			}
			return dictionaryFromWire(v)
		},
	}

	FieldProcessType = &Field{
		Name:    "process type",
		Wire:    "processType",
		Default: func() interface{} { return (*ProcessType)(nil) },
		Serialize: func(v interface{}) interface{} {
			p, _ := v.(*ProcessType)
			if p == nil {
				return nil
			}
			return string(*p)
		},
		Deserialize: func(v interface{}) (interface{}, error) {
			if v == nil {
				return (*ProcessType)(nil), nil
			}
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("process type must be a string, got %T", v)
			}
			pt := ProcessType(strings.ToUpper(s))
			if !pt.valid() {
				return nil, fmt.Errorf("unknown process type %q", s)
			}
			return &pt, nil
		},
	}
)

func init() {
	RegisterField(Description)
	RegisterField(Unit)
	RegisterField(LimitLow)
	RegisterField(LimitHigh)
	RegisterField(Accuracy)
	RegisterField(FieldInterpolationType)
	RegisterField(FieldDataType)
	RegisterField(DictionaryName)
	RegisterField(FieldDictionary)
	RegisterField(FieldProcessType)
}
