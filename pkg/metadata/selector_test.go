package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesSelectorCanonicalStringRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		selector SeriesSelector
		want     string
	}{
		{
			name:     "bare name only",
			selector: FromName("plant", "Temperature01"),
			want:     "Temperature01",
		},
		{
			name:     "name with non-default field",
			selector: NewSeriesSelector("plant", map[string]string{SeriesNameTag: "Temperature01"}, "setpoint"),
			want:     "Temperature01::setpoint",
		},
		{
			name:     "tags only, sorted",
			selector: NewSeriesSelector("plant", map[string]string{"unit": "U1", "line": "L2"}, ""),
			want:     "line=L2,unit=U1",
		},
		{
			name:     "name plus other tags",
			selector: NewSeriesSelector("plant", map[string]string{SeriesNameTag: "Temp", "unit": "U1"}, ""),
			want:     "Temp,unit=U1",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.selector.String())

			parsed, err := ParseSeriesSelector(c.selector.Source, c.selector.String())
			require.NoError(t, err)
			assert.Equal(t, c.selector, parsed)
		})
	}
}

func TestSeriesSelectorFromNameRoundTrip(t *testing.T) {
	s := FromName("historian", "Pump.01.Flow")
	assert.Equal(t, s, FromName(s.Source, s.Name()))
}

func TestParseSeriesSelectorWhitespaceStripped(t *testing.T) {
	parsed, err := ParseSeriesSelector("plant", "  Temp01  ")
	require.NoError(t, err)
	assert.Equal(t, "Temp01", parsed.Name())
}

func TestParseSeriesSelectorRejectsBareSegmentAfterFirst(t *testing.T) {
	_, err := ParseSeriesSelector("plant", "Temp01,bogus")
	require.Error(t, err)
}

func TestSeriesSelectorWireRoundTrip(t *testing.T) {
	s := NewSeriesSelector("plant", map[string]string{SeriesNameTag: "Temp01", "unit": "C"}, "setpoint")
	data := s.ToData()

	parsed, err := SeriesSelectorFromData(data)
	require.NoError(t, err)
	assert.Equal(t, s, parsed)
}

func TestSeriesSelectorFromDataNameSugar(t *testing.T) {
	data := map[string]interface{}{"source": "plant", "name": "Temp01"}
	parsed, err := SeriesSelectorFromData(data)
	require.NoError(t, err)
	assert.Equal(t, FromName("plant", "Temp01"), parsed)
}

func TestSeriesSelectorValidate(t *testing.T) {
	require.Error(t, SeriesSelector{}.Validate())
	require.Error(t, NewSeriesSelector("plant", map[string]string{"": "x"}, "").Validate())
	require.NoError(t, FromName("plant", "Temp01").Validate())
}
