package registry

import (
	"fmt"
	"time"

	"github.com/timeseer-ai/kukur-go/internal/sourcemem"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/source"
	"github.com/timeseer-ai/kukur-go/pkg/table"
)

// MemoryAdapterFactory builds an internal/sourcemem adapter from a "memory"
// source configuration entry's "series" list, so a configuration file (or
// the `kukur test` CLI) can exercise the full dispatch stack without a real
// backend. Each series entry is shaped:
//
//	series:
//	  - tags: {"series name": "Temp01"}
//	    field: quantity
//	    value_kind: float64
//	    announce_full: true
//	    metadata: {description: "...", unit: "kg"}
//	    rows:
//	      - ts: "2020-01-01T00:00:00Z"
//	        value: 20.5
//	        quality: 192
func MemoryAdapterFactory(name string, deps AdapterDeps) (source.Source, error) {
	rawSeries, _ := deps.RawConfig["series"].([]interface{})
	series := make([]sourcemem.Series, 0, len(rawSeries))
	for i, raw := range rawSeries {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("memory source %q: series entry %d must be a mapping", name, i)
		}
		s, err := seriesFromMap(entry)
		if err != nil {
			return nil, fmt.Errorf("memory source %q: series entry %d: %w", name, i, err)
		}
		series = append(series, s)
	}
	return sourcemem.New(name, series, deps.Quality, deps.FieldMapper, deps.ValueMapper), nil
}

func seriesFromMap(entry map[string]interface{}) (sourcemem.Series, error) {
	s := sourcemem.Series{
		Tags:      stringMap(entry["tags"]),
		Field:     metadata.DefaultField,
		ValueKind: table.ValueInt64,
	}
	if s.Tags == nil {
		s.Tags = map[string]string{}
	}
	if field, ok := entry["field"].(string); ok && field != "" {
		s.Field = field
	}
	if kind, ok := entry["value_kind"].(string); ok {
		vk, err := parseValueKind(kind)
		if err != nil {
			return s, err
		}
		s.ValueKind = vk
	}
	if announce, ok := entry["announce_full"].(bool); ok {
		s.AnnounceFull = announce
	}
	if md, ok := entry["metadata"].(map[string]interface{}); ok {
		s.RawMetadata = md
	}

	rawRows, _ := entry["rows"].([]interface{})
	for i, raw := range rawRows {
		rowMap, ok := raw.(map[string]interface{})
		if !ok {
			return s, fmt.Errorf("row %d must be a mapping", i)
		}
		ts, err := parseRowTimestamp(rowMap["ts"])
		if err != nil {
			return s, fmt.Errorf("row %d: %w", i, err)
		}
		s.Rows = append(s.Rows, table.Row{Timestamp: ts, Value: coerceRowValue(rowMap["value"], s.ValueKind)})
		s.RawQuality = append(s.RawQuality, rowMap["quality"])
	}
	return s, nil
}

func parseValueKind(name string) (table.ValueKind, error) {
	switch name {
	case "int64":
		return table.ValueInt64, nil
	case "float64":
		return table.ValueFloat64, nil
	case "string":
		return table.ValueString, nil
	default:
		return 0, fmt.Errorf("unknown value_kind %q", name)
	}
}

func parseRowTimestamp(raw interface{}) (time.Time, error) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("ts must be an RFC3339 string")
	}
	return time.Parse(time.RFC3339, s)
}

func coerceRowValue(raw interface{}, kind table.ValueKind) interface{} {
	switch kind {
	case table.ValueInt64:
		switch v := raw.(type) {
		case int:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	case table.ValueFloat64:
		switch v := raw.(type) {
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case float64:
			return v
		}
	case table.ValueString:
		if v, ok := raw.(string); ok {
			return v
		}
		return fmt.Sprint(raw)
	}
	return raw
}
