package source

// TagValue is one known (key, value) pair a source's structure reports.
type TagValue struct {
	Key   string
	Value string
}

// SourceStructure enumerates a source's known tag keys, known tag values,
// and known fields, as reported by an adapter's optional
// GetSourceStructure capability.
type SourceStructure struct {
	TagKeys   []string
	TagValues []TagValue
	Fields    []string
}

// ToData renders the wire form of a SourceStructure.
func (s *SourceStructure) ToData() map[string]interface{} {
	if s == nil {
		return nil
	}
	tagValues := make([]interface{}, len(s.TagValues))
	for i, tv := range s.TagValues {
		tagValues[i] = map[string]interface{}{"key": tv.Key, "value": tv.Value}
	}
	return map[string]interface{}{
		"tagKeys":   append([]string{}, s.TagKeys...),
		"tagValues": tagValues,
		"fields":    append([]string{}, s.Fields...),
	}
}

// SourceStructureFromData parses the wire form produced by ToData.
func SourceStructureFromData(data map[string]interface{}) *SourceStructure {
	out := &SourceStructure{}
	stringList := func(v interface{}) []string {
		if ss, ok := v.([]string); ok {
			return append([]string(nil), ss...)
		}
		var list []string
		if raw, ok := v.([]interface{}); ok {
			for _, item := range raw {
				if s, ok := item.(string); ok {
					list = append(list, s)
				}
			}
		}
		return list
	}
	out.TagKeys = stringList(data["tagKeys"])
	out.Fields = stringList(data["fields"])
	if raw, ok := data["tagValues"].([]interface{}); ok {
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			key, _ := m["key"].(string)
			value, _ := m["value"].(string)
			out.TagValues = append(out.TagValues, TagValue{Key: key, Value: value})
		}
	}
	return out
}
