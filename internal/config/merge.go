package config

// normalizeYAML recursively converts the map[interface{}]interface{} nodes
// gopkg.in/yaml.v2 decodes untyped mappings into into map[string]interface{},
// so the rest of this package (and internal/registry.ConfigFromMap) can work
// with a single, JSON-shaped generic tree.
func normalizeYAML(node interface{}) interface{} {
	switch v := node.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if k, ok := key.(string); ok {
				out[k] = normalizeYAML(value)
			}
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, value := range v {
			out[k] = normalizeYAML(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, value := range v {
			out[i] = normalizeYAML(value)
		}
		return out
	default:
		return v
	}
}

// mergeConfigTrees merges src into dst following the rule spec §6 assigns
// include.glob: scalars overwrite, lists concatenate, dictionaries merge
// key-by-key (recursively). dst is mutated and returned.
func mergeConfigTrees(dst, src map[string]interface{}) map[string]interface{} {
	for key, srcValue := range src {
		dstValue, exists := dst[key]
		if !exists {
			dst[key] = srcValue
			continue
		}
		dst[key] = mergeValue(dstValue, srcValue)
	}
	return dst
}

func mergeValue(dstValue, srcValue interface{}) interface{} {
	dstMap, dstIsMap := dstValue.(map[string]interface{})
	srcMap, srcIsMap := srcValue.(map[string]interface{})
	if dstIsMap && srcIsMap {
		return mergeConfigTrees(dstMap, srcMap)
	}

	dstList, dstIsList := dstValue.([]interface{})
	srcList, srcIsList := srcValue.([]interface{})
	if dstIsList && srcIsList {
		return append(append([]interface{}{}, dstList...), srcList...)
	}

	// Scalars, or a type mismatch between the two sides: the included file
	// overwrites, per spec §6's "scalars overwrite" rule.
	return srcValue
}
