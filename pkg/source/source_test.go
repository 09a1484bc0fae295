package source

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/table"
)

func TestSliceIteratorYieldsInOrderThenEOF(t *testing.T) {
	selector := metadata.FromName("plant", "Temp01")
	md := metadata.New(metadata.FromName("plant", "Temp02"))

	it := NewSliceIterator([]SearchItem{
		ItemFromSelector(selector),
		ItemFromMetadata(md),
	})

	first, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, first.HasMetadata())
	assert.Equal(t, selector, first.EffectiveSelector())

	second, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, second.HasMetadata())
	assert.Equal(t, md.Series, second.EffectiveSelector())

	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestDrainCollectsAllItems(t *testing.T) {
	it := NewSliceIterator([]SearchItem{
		ItemFromSelector(metadata.FromName("plant", "A")),
		ItemFromSelector(metadata.FromName("plant", "B")),
	})

	items, err := Drain(context.Background(), it)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSourceStructureWireRoundTrip(t *testing.T) {
	s := &SourceStructure{
		TagKeys:   []string{"unit", "line"},
		TagValues: []TagValue{{Key: "unit", Value: "U1"}},
		Fields:    []string{"value", "setpoint"},
	}

	round := SourceStructureFromData(s.ToData())
	assert.Equal(t, s, round)
}

// minimalSource implements only the required Source methods, with neither
// optional capability, exercising the tagged-capability-interface design.
type minimalSource struct{}

func (minimalSource) Search(ctx context.Context, selector metadata.SeriesSelector) (SearchIterator, error) {
	return NewSliceIterator(nil), nil
}

func (minimalSource) GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error) {
	return metadata.New(selector), nil
}

func (minimalSource) GetData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time) (arrow.Table, error) {
	return table.EmptyStandard(), nil
}

func TestSupportsPlotAndStructureAreFalseWithoutCapability(t *testing.T) {
	var s Source = minimalSource{}
	assert.False(t, SupportsPlot(s))
	assert.False(t, SupportsStructure(s))
}

// fullSource additionally implements both optional capabilities.
type fullSource struct{ minimalSource }

func (fullSource) GetPlotData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time, intervalCount int) (arrow.Table, error) {
	return table.EmptyStandard(), nil
}

func (fullSource) GetSourceStructure(ctx context.Context, selector metadata.SeriesSelector) (*SourceStructure, error) {
	return &SourceStructure{}, nil
}

func TestSupportsPlotAndStructureAreTrueWithCapability(t *testing.T) {
	var s Source = fullSource{}
	assert.True(t, SupportsPlot(s))
	assert.True(t, SupportsStructure(s))
}
