// Package metadata implements Kukur's series identity and metadata model:
// SeriesSelector, the process-wide field registry, and Metadata itself.
package metadata

import (
	"fmt"
	"sort"
	"strings"
)

// SeriesNameTag is the conventional tag holding a flat-namespace series
// identifier. Sources that don't use tags at all still address a series
// through this tag.
const SeriesNameTag = "series name"

// DefaultField is the field selected when a selector names none explicitly.
const DefaultField = "value"

// SeriesSelector identifies a series, or a family of series, within a
// configured source. Tags are unordered semantically; the canonical string
// form below imposes a deterministic presentation for logs and wire
// identity.
type SeriesSelector struct {
	Source string
	Tags   map[string]string
	Field  string
}

// NewSeriesSelector builds a selector, defaulting Field to "value" when
// empty.
func NewSeriesSelector(source string, tags map[string]string, field string) SeriesSelector {
	if field == "" {
		field = DefaultField
	}
	if tags == nil {
		tags = map[string]string{}
	}
	return SeriesSelector{Source: source, Tags: tags, Field: field}
}

// FromName is sugar for a flat-namespace selector: the given name becomes
// the "series name" tag.
func FromName(source, name string) SeriesSelector {
	return SeriesSelector{
		Source: source,
		Tags:   map[string]string{SeriesNameTag: name},
		Field:  DefaultField,
	}
}

// Name returns the "series name" tag, or "" if the selector has none.
func (s SeriesSelector) Name() string {
	return s.Tags[SeriesNameTag]
}

// Validate checks the invariants: non-empty source, non-empty tag keys and
// values.
func (s SeriesSelector) Validate() error {
	if strings.TrimSpace(s.Source) == "" {
		return fmt.Errorf("metadata: selector has empty source")
	}
	for k, v := range s.Tags {
		if k == "" || v == "" {
			return fmt.Errorf("metadata: selector %q has an empty tag name or value", s.Source)
		}
	}
	return nil
}

// String renders the canonical form used for logs and wire identity: the
// "series name" tag first as a bare value, then the remaining tags sorted
// by key as "tag=value", comma-separated, followed by "::field" when the
// field isn't the default "value". It does not include Source; callers that
// need source-qualified identity in logs should prefix it themselves.
func (s SeriesSelector) String() string {
	var parts []string
	if name, ok := s.Tags[SeriesNameTag]; ok {
		parts = append(parts, name)
	}

	var otherKeys []string
	for k := range s.Tags {
		if k == SeriesNameTag {
			continue
		}
		otherKeys = append(otherKeys, k)
	}
	sort.Strings(otherKeys)
	for _, k := range otherKeys {
		parts = append(parts, k+"="+s.Tags[k])
	}

	out := strings.Join(parts, ",")
	if s.Field != "" && s.Field != DefaultField {
		out += "::" + s.Field
	}
	return out
}

// ParseSeriesSelector parses the canonical string form produced by String,
// for the given source. Whitespace around the string is stripped. The first
// comma-separated segment that contains no "=" is taken as the "series
// name" tag; every other segment must be "tag=value".
func ParseSeriesSelector(source, canonical string) (SeriesSelector, error) {
	if strings.TrimSpace(source) == "" {
		return SeriesSelector{}, fmt.Errorf("metadata: ParseSeriesSelector requires a source")
	}

	canonical = strings.TrimSpace(canonical)
	field := DefaultField
	if idx := strings.LastIndex(canonical, "::"); idx >= 0 {
		field = canonical[idx+2:]
		canonical = canonical[:idx]
	}

	tags := map[string]string{}
	if canonical != "" {
		for i, part := range strings.Split(canonical, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if eq := strings.Index(part, "="); eq >= 0 {
				tags[part[:eq]] = part[eq+1:]
			} else if i == 0 {
				tags[SeriesNameTag] = part
			} else {
				return SeriesSelector{}, fmt.Errorf("metadata: invalid selector segment %q", part)
			}
		}
	}

	return SeriesSelector{Source: source, Tags: tags, Field: field}, nil
}

// ToData renders the wire form of the selector: {source, tags, field}.
func (s SeriesSelector) ToData() map[string]interface{} {
	tags := make(map[string]interface{}, len(s.Tags))
	for k, v := range s.Tags {
		tags[k] = v
	}
	return map[string]interface{}{
		"source": s.Source,
		"tags":   tags,
		"field":  s.Field,
	}
}

// SeriesSelectorFromData parses the wire form accepted by an RPC request:
// {source, name?, tags?, field?}. "name" is sugar for the "series name" tag
// and is merged in alongside any explicit tags.
func SeriesSelectorFromData(data map[string]interface{}) (SeriesSelector, error) {
	source, _ := data["source"].(string)
	if strings.TrimSpace(source) == "" {
		return SeriesSelector{}, fmt.Errorf("metadata: selector data missing source")
	}

	field := DefaultField
	if f, ok := data["field"].(string); ok && f != "" {
		field = f
	}

	tags := map[string]string{}
	if name, ok := data["name"].(string); ok && name != "" {
		tags[SeriesNameTag] = name
	}
	switch rawTags := data["tags"].(type) {
	case map[string]interface{}:
		for k, v := range rawTags {
			if sv, ok := v.(string); ok {
				tags[k] = sv
			}
		}
	case map[string]string:
		for k, v := range rawTags {
			tags[k] = v
		}
	}

	return SeriesSelector{Source: source, Tags: tags, Field: field}, nil
}
