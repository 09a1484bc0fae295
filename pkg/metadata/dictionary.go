package metadata

import "fmt"

// DictionaryEntry is one code-to-label mapping in a Dictionary. Order is
// significant: it is preserved on the wire and when presenting a series to
// a user.
type DictionaryEntry struct {
	Code  int64
	Label string
}

// Dictionary maps integer codes to labels, in presentation order. Time
// series can carry integer values with a meaning - 0 could be "OFF" and 1
// "ON".
type Dictionary struct {
	entries []DictionaryEntry
}

// NewDictionary validates and builds a Dictionary. Codes must be unique;
// labels must be non-empty.
func NewDictionary(entries []DictionaryEntry) (*Dictionary, error) {
	seen := make(map[int64]bool, len(entries))
	for _, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("metadata: dictionary entry %d has an empty label", e.Code)
		}
		if seen[e.Code] {
			return nil, fmt.Errorf("metadata: dictionary code %d is duplicated", e.Code)
		}
		seen[e.Code] = true
	}
	out := make([]DictionaryEntry, len(entries))
	copy(out, entries)
	return &Dictionary{entries: out}, nil
}

// Entries returns the dictionary's entries in presentation order.
func (d *Dictionary) Entries() []DictionaryEntry {
	if d == nil {
		return nil
	}
	out := make([]DictionaryEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Label returns the label for code, if present.
func (d *Dictionary) Label(code int64) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, e := range d.entries {
		if e.Code == code {
			return e.Label, true
		}
	}
	return "", false
}

// toWire renders the dictionary as an ordered list of [code, label] pairs,
// the shape it takes in JSON.
func (d *Dictionary) toWire() []interface{} {
	if d == nil {
		return nil
	}
	out := make([]interface{}, len(d.entries))
	for i, e := range d.entries {
		out[i] = []interface{}{e.Code, e.Label}
	}
	return out
}

// dictionaryFromWire accepts the JSON shape produced by toWire: a slice of
// two-element pairs, where the code may have decoded as any numeric type.
func dictionaryFromWire(v interface{}) (*Dictionary, error) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("metadata: dictionary wire value must be a list of pairs")
	}
	entries := make([]DictionaryEntry, 0, len(raw))
	for _, item := range raw {
		pair, ok := item.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("metadata: dictionary entry must be a [code, label] pair")
		}
		code, err := coerceInt64(pair[0])
		if err != nil {
			return nil, fmt.Errorf("metadata: dictionary code: %w", err)
		}
		label, ok := pair[1].(string)
		if !ok {
			return nil, fmt.Errorf("metadata: dictionary label must be a string")
		}
		entries = append(entries, DictionaryEntry{Code: code, Label: label})
	}
	return NewDictionary(entries)
}
