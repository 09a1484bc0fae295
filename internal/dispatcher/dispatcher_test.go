package dispatcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timeseer-ai/kukur-go/internal/sourcemem"
	"github.com/timeseer-ai/kukur-go/pkg/errkind"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/source"
	"github.com/timeseer-ai/kukur-go/pkg/table"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// TestIntervalSplittingConcatenation mirrors scenario S1: a backend
// returning two rows per sub-interval, boundary timestamps included both
// ends, concatenates to 62 rows across 31 daily sub-intervals.
func TestIntervalSplittingConcatenation(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	adapter := constantPairAdapter{day: day}
	w := NewSourceWrapper("plant", adapter, adapter, nil, Options{DataQueryInterval: day}, testLogger())

	tbl, err := w.GetData(context.Background(), metadata.FromName("plant", "Temp01"), start, end)
	require.NoError(t, err)
	defer tbl.Release()

	assert.EqualValues(t, 62, tbl.NumRows())
	rows, err := table.Rows(tbl)
	require.NoError(t, err)
	assert.Equal(t, start, rows[0].Timestamp)
	assert.Equal(t, int64(42), rows[0].Value)
	assert.Equal(t, end, rows[len(rows)-1].Timestamp)
	assert.Equal(t, int64(24), rows[len(rows)-1].Value)
}

// constantPairAdapter returns (s, 42), (e, 24) for every interval it's
// asked for, per scenario S1.
type constantPairAdapter struct {
	day time.Duration
}

func (a constantPairAdapter) Search(ctx context.Context, selector metadata.SeriesSelector) (source.SearchIterator, error) {
	return source.NewSliceIterator(nil), nil
}

func (a constantPairAdapter) GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error) {
	return metadata.New(selector), nil
}

func (a constantPairAdapter) GetData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time) (arrow.Table, error) {
	return table.New(nil, table.ValueInt64, false, []table.Row{
		{Timestamp: start, Value: int64(42)},
		{Timestamp: end, Value: int64(24)},
	})
}

// TestValueTypeReconciliationToString mirrors scenario S3.
func TestValueTypeReconciliationToString(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := start.Add(time.Hour)
	end := mid.Add(time.Hour)

	adapter := twoIntervalAdapter{
		split: mid,
		first: table.Row{Timestamp: start, Value: "A"},
		second: table.Row{Timestamp: mid, Value: 2.5},
	}
	w := NewSourceWrapper("plant", adapter, adapter, nil, Options{DataQueryInterval: time.Hour}, testLogger())

	tbl, err := w.GetData(context.Background(), metadata.FromName("plant", "Temp01"), start, end)
	require.NoError(t, err)
	defer tbl.Release()

	kind, ok := table.ValueKindOf(tbl)
	require.True(t, ok)
	assert.Equal(t, table.ValueString, kind)

	rows, err := table.Rows(tbl)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Value)
	assert.Equal(t, "2.5", rows[1].Value)
}

type twoIntervalAdapter struct {
	split        time.Time
	first, second table.Row
}

func (a twoIntervalAdapter) Search(ctx context.Context, selector metadata.SeriesSelector) (source.SearchIterator, error) {
	return source.NewSliceIterator(nil), nil
}

func (a twoIntervalAdapter) GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error) {
	return metadata.New(selector), nil
}

func (a twoIntervalAdapter) GetData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time) (arrow.Table, error) {
	if start.Before(a.split) {
		return table.New(nil, table.ValueString, false, []table.Row{a.first})
	}
	return table.New(nil, table.ValueFloat64, false, []table.Row{a.second})
}

// TestRetryThenSuccess mirrors scenario S4: the adapter fails once with
// Transient, then succeeds; the call returns the successful result.
func TestRetryThenSuccess(t *testing.T) {
	adapter := &flakyAdapter{failures: 1}
	w := NewSourceWrapper("plant", adapter, adapter, nil, Options{QueryRetryCount: 1}, testLogger())

	start := time.Now()
	end := start.Add(time.Minute)
	tbl, err := w.GetData(context.Background(), metadata.FromName("plant", "Temp01"), start, end)
	require.NoError(t, err)
	defer tbl.Release()
	assert.EqualValues(t, 1, tbl.NumRows())
	assert.Equal(t, 2, adapter.calls)
}

// TestRetryExhaustedPropagatesError checks that exceeding query_retry_count
// surfaces the last error instead of retrying indefinitely.
func TestRetryExhaustedPropagatesError(t *testing.T) {
	adapter := &flakyAdapter{failures: 5}
	w := NewSourceWrapper("plant", adapter, adapter, nil, Options{QueryRetryCount: 1}, testLogger())

	_, err := w.GetData(context.Background(), metadata.FromName("plant", "Temp01"), time.Now(), time.Now().Add(time.Minute))
	require.Error(t, err)
	kind, ok := errkind.Of(err)
	require.True(t, ok)
	assert.Equal(t, errkind.Transient, kind)
	assert.Equal(t, 2, adapter.calls)
}

type flakyAdapter struct {
	failures int
	calls    int
}

func (a *flakyAdapter) Search(ctx context.Context, selector metadata.SeriesSelector) (source.SearchIterator, error) {
	return source.NewSliceIterator(nil), nil
}

func (a *flakyAdapter) GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error) {
	return metadata.New(selector), nil
}

func (a *flakyAdapter) GetData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time) (arrow.Table, error) {
	a.calls++
	if a.calls <= a.failures {
		return nil, errkind.TransientError("test", "get_data", fmt.Sprintf("attempt %d failed", a.calls))
	}
	return table.New(nil, table.ValueFloat64, false, []table.Row{{Timestamp: start, Value: 2.5}})
}

// TestAuxiliaryMetadataPrecedence mirrors scenario S5.
func TestAuxiliaryMetadataPrecedence(t *testing.T) {
	primary := sourcemem.New("plant", []sourcemem.Series{
		sourcemem.NewBuilder("Temp01").WithRawMetadata(map[string]interface{}{
			"description": "primary desc",
			"unit":        "",
		}).Build(),
	}, nil, nil, nil)
	aux := sourcemem.New("aux", []sourcemem.Series{
		sourcemem.NewBuilder("Temp01").WithRawMetadata(map[string]interface{}{
			"description": "aux desc",
			"unit":        "kg",
		}).Build(),
	}, nil, nil, nil)

	w := NewSourceWrapper("plant", primary, primary, []AuxiliarySource{{Source: aux}}, Options{}, testLogger())
	md, err := w.GetMetadata(context.Background(), metadata.FromName("plant", "Temp01"))
	require.NoError(t, err)
	assert.Equal(t, "primary desc", md.Get(metadata.Description))
	assert.Equal(t, "kg", md.Get(metadata.Unit))
}

// TestGetMetadataWithNoNameReturnsEmptyAccumulator checks the short-circuit
// rule: a selector missing the series name tag calls no adapter at all.
func TestGetMetadataWithNoNameReturnsEmptyAccumulator(t *testing.T) {
	adapter := &callCountingAdapter{}
	w := NewSourceWrapper("plant", adapter, adapter, nil, Options{}, testLogger())

	md, err := w.GetMetadata(context.Background(), metadata.NewSeriesSelector("plant", nil, ""))
	require.NoError(t, err)
	assert.Equal(t, "", md.Get(metadata.Description))
	assert.Equal(t, 0, adapter.metadataCalls)
}

type callCountingAdapter struct {
	metadataCalls int
}

func (a *callCountingAdapter) Search(ctx context.Context, selector metadata.SeriesSelector) (source.SearchIterator, error) {
	return source.NewSliceIterator(nil), nil
}

func (a *callCountingAdapter) GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error) {
	a.metadataCalls++
	return metadata.New(selector), nil
}

func (a *callCountingAdapter) GetData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time) (arrow.Table, error) {
	return table.EmptyStandard(), nil
}

// TestGetDataEmptyOnEqualBounds checks invariant 2.
func TestGetDataEmptyOnEqualBounds(t *testing.T) {
	adapter := &callCountingAdapter{}
	w := NewSourceWrapper("plant", adapter, adapter, nil, Options{}, testLogger())

	now := time.Now()
	tbl, err := w.GetData(context.Background(), metadata.FromName("plant", "Temp01"), now, now)
	require.NoError(t, err)
	defer tbl.Release()
	assert.EqualValues(t, 0, tbl.NumRows())
}

// TestGetPlotDataNotSupported checks that an adapter without PlotSource
// surfaces NotSupported rather than panicking on a type assertion.
func TestGetPlotDataNotSupported(t *testing.T) {
	adapter := &callCountingAdapter{}
	w := NewSourceWrapper("plant", adapter, adapter, nil, Options{}, testLogger())

	_, err := w.GetPlotData(context.Background(), metadata.FromName("plant", "Temp01"), time.Now(), time.Now().Add(time.Minute), 10)
	kind, ok := errkind.Of(err)
	require.True(t, ok)
	assert.Equal(t, errkind.NotSupported, kind)
}

// TestGetSourceStructureDelegates checks plain delegation to the data
// adapter via sourcemem's real StructureSource implementation.
func TestGetSourceStructureDelegates(t *testing.T) {
	adapter := sourcemem.New("plant", []sourcemem.Series{
		sourcemem.NewBuilder("Temp01").Build(),
	}, nil, nil, nil)
	w := NewSourceWrapper("plant", adapter, adapter, nil, Options{}, testLogger())

	structure, err := w.GetSourceStructure(context.Background(), metadata.FromName("plant", "Temp01"))
	require.NoError(t, err)
	assert.Contains(t, structure.TagKeys, metadata.SeriesNameTag)
}
