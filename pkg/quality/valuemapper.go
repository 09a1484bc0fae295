package quality

import "fmt"

// ValueMapper is the metadata field-value mapper: for a specific
// (field, backend value) pair it returns the canonical value; when no
// mapping is registered for that pair, it returns the backend value
// coerced to a string.
type ValueMapper struct {
	// mapping is fieldName -> externalValue (stringified) -> canonicalValue.
	mapping map[string]map[string]string
}

// NewValueMapper returns a mapper with no mappings.
func NewValueMapper() *ValueMapper {
	return &ValueMapper{mapping: map[string]map[string]string{}}
}

// ValueMapperFromConfig builds a mapper from a config shaped
// {field_name: {canonical_value: external_value | [external_value, ...]}}.
// A list of external values lets several backend spellings map to the same
// canonical value.
func ValueMapperFromConfig(config map[string]map[string]interface{}) *ValueMapper {
	m := NewValueMapper()
	for fieldName, fieldMapping := range config {
		for canonicalValue, externalRaw := range fieldMapping {
			switch ev := externalRaw.(type) {
			case []interface{}:
				for _, choice := range ev {
					m.AddMapping(fieldName, canonicalValue, fmt.Sprint(choice))
				}
			default:
				m.AddMapping(fieldName, canonicalValue, fmt.Sprint(ev))
			}
		}
	}
	return m
}

// AddMapping registers that externalValue, for fieldName, means
// canonicalValue.
func (m *ValueMapper) AddMapping(fieldName, canonicalValue, externalValue string) {
	if m.mapping[fieldName] == nil {
		m.mapping[fieldName] = map[string]string{}
	}
	m.mapping[fieldName][externalValue] = canonicalValue
}

// FromSource maps a backend value for fieldName to Kukur's canonical value,
// falling back to the backend value coerced to a string when unmapped.
func (m *ValueMapper) FromSource(fieldName string, externalValue interface{}) string {
	asString := fmt.Sprint(externalValue)
	fieldMapping, ok := m.mapping[fieldName]
	if !ok {
		return asString
	}
	if canonicalValue, ok := fieldMapping[asString]; ok {
		return canonicalValue
	}
	return asString
}
