package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeseer-ai/kukur-go/pkg/errkind"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
)

func memorySeries(name string, raw map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"tags":     map[string]interface{}{metadata.SeriesNameTag: name},
		"metadata": raw,
	}
}

func TestNewBuildsSourceWrapperForMemoryType(t *testing.T) {
	cfg := Config{
		Sources: []NamedSourceConfig{
			{Name: "plant", Config: SourceConfig{Type: "memory", Raw: map[string]interface{}{
				"series": []interface{}{memorySeries("Temp01", map[string]interface{}{"description": "a tank"})},
			}}},
		},
	}

	reg, err := New(cfg, DefaultFactories(), nil)
	require.NoError(t, err)

	wrapper, ok := reg.Get("plant")
	require.True(t, ok)
	md, err := wrapper.GetMetadata(context.Background(), metadata.FromName("plant", "Temp01"))
	require.NoError(t, err)
	assert.Equal(t, "a tank", md.Get(metadata.Description))
}

func TestNewReturnsInvalidSourceForMissingType(t *testing.T) {
	cfg := Config{Sources: []NamedSourceConfig{{Name: "plant"}}}
	_, err := New(cfg, DefaultFactories(), nil)
	require.Error(t, err)
	kind, ok := errkind.Of(err)
	require.True(t, ok)
	assert.Equal(t, errkind.InvalidSource, kind)
}

func TestNewReturnsInvalidSourceForUnknownType(t *testing.T) {
	cfg := Config{Sources: []NamedSourceConfig{{Name: "plant", Config: SourceConfig{Type: "does-not-exist"}}}}
	_, err := New(cfg, DefaultFactories(), nil)
	require.Error(t, err)
	kind, ok := errkind.Of(err)
	require.True(t, ok)
	assert.Equal(t, errkind.InvalidSource, kind)
}

func TestNewReturnsInvalidSourceForUnknownMetadataSource(t *testing.T) {
	cfg := Config{
		Sources: []NamedSourceConfig{
			{Name: "plant", Config: SourceConfig{Type: "memory", MetadataSources: []string{"missing"}, Raw: map[string]interface{}{}}},
		},
	}
	_, err := New(cfg, DefaultFactories(), nil)
	require.Error(t, err)
	kind, ok := errkind.Of(err)
	require.True(t, ok)
	assert.Equal(t, errkind.InvalidSource, kind)
}

// TestAuxiliaryMetadataSourceFieldWhitelist checks that an auxiliary source's
// "fields" configuration restricts what it's allowed to contribute, per
// spec §4.2's metadata_sources/fields handling.
func TestAuxiliaryMetadataSourceFieldWhitelist(t *testing.T) {
	cfg := Config{
		Sources: []NamedSourceConfig{
			{Name: "plant", Config: SourceConfig{
				Type:            "memory",
				MetadataSources: []string{"extra"},
				Raw: map[string]interface{}{
					"series": []interface{}{memorySeries("Temp01", map[string]interface{}{"description": "primary"})},
				},
			}},
		},
		Metadata: map[string]SourceConfig{
			"extra": {
				Type:   "memory",
				Fields: []string{"unit"},
				Raw: map[string]interface{}{
					"series": []interface{}{memorySeries("Temp01", map[string]interface{}{
						"unit":     "kg",
						"location": "basement",
					})},
				},
			},
		},
	}

	reg, err := New(cfg, DefaultFactories(), nil)
	require.NoError(t, err)
	wrapper, ok := reg.Get("plant")
	require.True(t, ok)

	md, err := wrapper.GetMetadata(context.Background(), metadata.FromName("plant", "Temp01"))
	require.NoError(t, err)
	assert.Equal(t, "primary", md.Get(metadata.Description))
	assert.Equal(t, "kg", md.Get(metadata.Unit))
	_, ok = md.GetByName("location")
	assert.False(t, ok)
}

// TestConfigFromMapDecodesSections checks the config-file decoding path end
// to end against the same shape the original flat per-source dict uses.
func TestConfigFromMapDecodesSections(t *testing.T) {
	root := map[string]interface{}{
		"source": map[string]interface{}{
			"plant": map[string]interface{}{
				"type":                        "memory",
				"metadata_type":               "memory",
				"metadata_sources":            []interface{}{"extra"},
				"metadata_mapping":            "plant_fields",
				"data_query_interval_seconds": float64(86400),
				"query_retry_count":           float64(2),
				"query_retry_delay":           float64(1.5),
				"series":                      []interface{}{},
			},
		},
		"metadata": map[string]interface{}{
			"extra": map[string]interface{}{
				"type":   "memory",
				"fields": []interface{}{"unit"},
			},
		},
		"metadata_mapping": map[string]interface{}{
			"plant_fields": map[string]interface{}{
				"description": "DESC",
			},
		},
	}

	cfg, err := ConfigFromMap(root, []string{"plant"})
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 1)
	plant := cfg.Sources[0].Config
	assert.Equal(t, "plant", cfg.Sources[0].Name)
	assert.Equal(t, "memory", plant.Type)
	assert.Equal(t, []string{"extra"}, plant.MetadataSources)
	assert.Equal(t, 86400.0, plant.DataQueryIntervalSeconds)
	assert.Equal(t, 2, plant.QueryRetryCount)
	assert.Equal(t, 1.5, plant.QueryRetryDelaySeconds)

	extra := cfg.Metadata["extra"]
	assert.Equal(t, []string{"unit"}, extra.Fields)

	assert.Equal(t, "DESC", cfg.MetadataMapping["plant_fields"]["description"])
}

// TestConfigFromMapPreservesExplicitSourceOrder checks that list_sources'
// determinism (spec §5) follows the caller-supplied order rather than Go's
// randomized map iteration.
func TestConfigFromMapPreservesExplicitSourceOrder(t *testing.T) {
	root := map[string]interface{}{
		"source": map[string]interface{}{
			"b": map[string]interface{}{"type": "memory"},
			"a": map[string]interface{}{"type": "memory"},
			"c": map[string]interface{}{"type": "memory"},
		},
	}

	cfg, err := ConfigFromMap(root, []string{"c", "a", "b"})
	require.NoError(t, err)
	var names []string
	for _, s := range cfg.Sources {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestConfigFromMapSortsSourcesWhenNoOrderGiven(t *testing.T) {
	root := map[string]interface{}{
		"source": map[string]interface{}{
			"b": map[string]interface{}{"type": "memory"},
			"a": map[string]interface{}{"type": "memory"},
		},
	}

	cfg, err := ConfigFromMap(root, nil)
	require.NoError(t, err)
	var names []string
	for _, s := range cfg.Sources {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestSecondsToDurationZeroMeansUnset(t *testing.T) {
	assert.Equal(t, time.Duration(0), secondsToDuration(0))
	assert.Equal(t, 90*time.Second, secondsToDuration(90))
}
