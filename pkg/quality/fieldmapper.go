package quality

// FieldMapper is the metadata field-name mapper: one bidirectional
// dictionary per source, translating between Kukur's canonical field name
// and the name a backend uses for the same field.
type FieldMapper struct {
	toAdapter   map[string]string
	toCanonical map[string]string
}

// NewFieldMapper returns a mapper with no mappings: every name passes
// through unchanged in both directions.
func NewFieldMapper() *FieldMapper {
	return &FieldMapper{toAdapter: map[string]string{}, toCanonical: map[string]string{}}
}

// FieldMapperFromConfig builds a mapper from a canonical-name -> adapter-name
// config section.
func FieldMapperFromConfig(config map[string]string) *FieldMapper {
	m := NewFieldMapper()
	for canonical, adapterName := range config {
		m.AddMapping(canonical, adapterName)
	}
	return m
}

// AddMapping registers one canonical <-> adapter name pair.
func (m *FieldMapper) AddMapping(canonicalName, adapterName string) {
	m.toAdapter[canonicalName] = adapterName
	m.toCanonical[adapterName] = canonicalName
}

// ToAdapter maps a canonical field name to the name the backend uses,
// passing it through unchanged when no mapping is registered.
func (m *FieldMapper) ToAdapter(canonicalName string) string {
	if adapterName, ok := m.toAdapter[canonicalName]; ok {
		return adapterName
	}
	return canonicalName
}

// ToCanonical maps a backend field name to Kukur's canonical name, passing
// it through unchanged when no mapping is registered.
func (m *FieldMapper) ToCanonical(adapterName string) string {
	if canonicalName, ok := m.toCanonical[adapterName]; ok {
		return canonicalName
	}
	return adapterName
}
