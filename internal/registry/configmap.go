package registry

import (
	"fmt"
	"sort"
)

// ConfigFromMap decodes the registry's Config from the generic
// map[string]interface{} tree a YAML document unmarshals into, the same
// shape the original configuration file layout uses: top-level "source" and
// "metadata" sections keyed by name, and "metadata_mapping",
// "metadata_value_mapping", "quality_mapping" sections keyed by dictionary
// name.
//
// sourceOrder names the order sources appeared in the configuration file,
// which a generic map cannot represent on its own; the caller captures it
// while parsing the raw document (see internal/config). When sourceOrder is
// nil, source names are sorted alphabetically instead - still deterministic,
// as spec §5 requires, just not necessarily the file's literal order.
func ConfigFromMap(root map[string]interface{}, sourceOrder []string) (Config, error) {
	cfg := Config{
		Metadata:             map[string]SourceConfig{},
		MetadataMapping:      map[string]map[string]string{},
		MetadataValueMapping: map[string]map[string]map[string]interface{}{},
		QualityMapping:       map[string]map[string]interface{}{},
	}

	sources, err := stringKeyedSection(root, "source")
	if err != nil {
		return cfg, err
	}
	order := sourceOrder
	if order == nil {
		for name := range sources {
			order = append(order, name)
		}
		sort.Strings(order)
	}
	for _, name := range order {
		raw, ok := sources[name]
		if !ok {
			continue
		}
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return cfg, fmt.Errorf("registry: source %q must be a mapping", name)
		}
		cfg.Sources = append(cfg.Sources, NamedSourceConfig{Name: name, Config: sourceConfigFromMap(entry)})
	}

	metadataSources, err := stringKeyedSection(root, "metadata")
	if err != nil {
		return cfg, err
	}
	for name, raw := range metadataSources {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return cfg, fmt.Errorf("registry: metadata source %q must be a mapping", name)
		}
		cfg.Metadata[name] = sourceConfigFromMap(entry)
	}

	if raw, ok := root["metadata_mapping"].(map[string]interface{}); ok {
		for name, dict := range raw {
			cfg.MetadataMapping[name] = stringMap(dict)
		}
	}
	if raw, ok := root["metadata_value_mapping"].(map[string]interface{}); ok {
		for name, dict := range raw {
			cfg.MetadataValueMapping[name] = nestedMap(dict)
		}
	}
	if raw, ok := root["quality_mapping"].(map[string]interface{}); ok {
		for name, dict := range raw {
			if m, ok := dict.(map[string]interface{}); ok {
				cfg.QualityMapping[name] = m
			}
		}
	}

	return cfg, nil
}

func stringKeyedSection(root map[string]interface{}, key string) (map[string]interface{}, error) {
	raw, ok := root[key]
	if !ok {
		return nil, nil
	}
	section, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("registry: %q section must be a mapping", key)
	}
	return section, nil
}

func sourceConfigFromMap(entry map[string]interface{}) SourceConfig {
	cfg := SourceConfig{Raw: entry}
	cfg.Type, _ = entry["type"].(string)
	cfg.MetadataType, _ = entry["metadata_type"].(string)
	cfg.MetadataMapping, _ = entry["metadata_mapping"].(string)
	cfg.MetadataValueMapping, _ = entry["metadata_value_mapping"].(string)
	cfg.QualityMapping, _ = entry["quality_mapping"].(string)
	cfg.MetadataSources = stringList(entry["metadata_sources"])
	cfg.Fields = stringList(entry["fields"])
	cfg.DataQueryIntervalSeconds = float(entry["data_query_interval_seconds"])
	cfg.QueryRetryCount = int(float(entry["query_retry_count"]))
	cfg.QueryRetryDelaySeconds = float(entry["query_retry_delay"])
	cfg.QueryTimeoutSeconds = float(entry["query_timeout_seconds"])
	return cfg
}

func stringList(raw interface{}) []string {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringMap(raw interface{}) map[string]string {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func nestedMap(raw interface{}) map[string]map[string]interface{} {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]map[string]interface{}, len(m))
	for k, v := range m {
		if inner, ok := v.(map[string]interface{}); ok {
			out[k] = inner
		}
	}
	return out
}

func float(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
