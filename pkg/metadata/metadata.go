package metadata

import (
	"fmt"
	"reflect"
)

// Metadata holds a SeriesSelector plus a set of typed field values. Every
// registered field is always present (absent means its default); fields a
// backend sent that aren't registered are kept verbatim in a side map and
// pass through serialization unchanged.
type Metadata struct {
	Series  SeriesSelector
	values  map[*Field]interface{}
	unknown map[string]interface{}
}

// New builds Metadata for series with every registered field at its
// default value.
func New(series SeriesSelector) *Metadata {
	m := &Metadata{
		Series:  series,
		values:  make(map[*Field]interface{}, len(registry)),
		unknown: make(map[string]interface{}),
	}
	for _, f := range registry {
		m.values[f] = f.Default()
	}
	return m
}

// Get returns the stored value for f, applying its Derive function if set.
func (m *Metadata) Get(f *Field) interface{} {
	stored := m.values[f]
	if f.Derive != nil {
		return f.Derive(m, stored)
	}
	return stored
}

// Set stores an already-typed value for f.
func (m *Metadata) Set(f *Field, value interface{}) {
	m.values[f] = value
}

// IsSet reports whether f's stored value differs from its default - the
// sense of "set" used by auxiliary metadata merge.
func (m *Metadata) IsSet(f *Field) bool {
	return !reflect.DeepEqual(m.values[f], f.Default())
}

// GetByName looks up a field by canonical or wire name. ok is false only
// when name matches neither a registered field nor an unknown field
// previously stored on this Metadata.
func (m *Metadata) GetByName(name string) (interface{}, bool) {
	if f, found := FindField(name); found {
		return m.Get(f), true
	}
	v, ok := m.unknown[name]
	return v, ok
}

// SetByName stores an already-typed value under a registered field, or
// verbatim in the unknown-field side map otherwise.
func (m *Metadata) SetByName(name string, value interface{}) {
	if f, found := FindField(name); found {
		m.Set(f, value)
		return
	}
	m.unknown[name] = value
}

// CoerceByName stores a wire-form value under name, running it through the
// field's Deserialize when name matches a registered field, or keeping it
// verbatim as an unknown field otherwise.
func (m *Metadata) CoerceByName(name string, wireValue interface{}) error {
	if f, found := FindField(name); found {
		v, err := f.Deserialize(wireValue)
		if err != nil {
			return fmt.Errorf("metadata: field %q: %w", name, err)
		}
		m.Set(f, v)
		return nil
	}
	m.unknown[name] = wireValue
	return nil
}

// UnknownFields returns a copy of the side map of fields the registry
// doesn't know about.
func (m *Metadata) UnknownFields() map[string]interface{} {
	out := make(map[string]interface{}, len(m.unknown))
	for k, v := range m.unknown {
		out[k] = v
	}
	return out
}

// Clone makes an independent copy suitable for in-place mutation during
// auxiliary metadata merge; Metadata is otherwise treated as an immutable
// value per request.
func (m *Metadata) Clone() *Metadata {
	out := &Metadata{
		Series:  m.Series,
		values:  make(map[*Field]interface{}, len(m.values)),
		unknown: make(map[string]interface{}, len(m.unknown)),
	}
	for f, v := range m.values {
		out.values[f] = v
	}
	for k, v := range m.unknown {
		out.unknown[k] = v
	}
	return out
}

// ToData renders the wire form: every registered field under its wire
// name, every unknown field verbatim, plus a "series" key.
func (m *Metadata) ToData() map[string]interface{} {
	data := make(map[string]interface{}, len(registry)+len(m.unknown)+1)
	for _, f := range registry {
		data[f.Wire] = f.Serialize(m.Get(f))
	}
	for k, v := range m.unknown {
		data[k] = v
	}
	data["series"] = m.Series.ToData()
	return data
}

// FromData parses the wire form produced by ToData, with the selector read
// from data["series"].
func FromData(data map[string]interface{}) (*Metadata, error) {
	seriesRaw, ok := data["series"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("metadata: data is missing a series selector")
	}
	series, err := SeriesSelectorFromData(seriesRaw)
	if err != nil {
		return nil, err
	}
	return FromDataWithSelector(data, series)
}

// FromDataWithSelector parses the wire form using the given selector
// instead of one embedded in data, for callers (like search results) that
// already know the selector out of band.
func FromDataWithSelector(data map[string]interface{}, series SeriesSelector) (*Metadata, error) {
	m := New(series)
	for k, v := range data {
		if k == "series" {
			continue
		}
		if err := m.CoerceByName(k, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}
