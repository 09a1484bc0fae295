package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/timeseer-ai/kukur-go/pkg/errkind"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/source"
	"github.com/timeseer-ai/kukur-go/pkg/table"
)

// GetData returns selector's data over [start, end): an empty standard
// table when start == end or the selector has no series name, otherwise
// the concatenation (with value-type reconciliation) of one adapter call
// per sub-interval, each independently retried. A sub-interval whose
// result is empty contributes nothing to the concatenation.
func (w *SourceWrapper) GetData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time) (arrow.Table, error) {
	if !start.Before(end) || selector.Name() == "" {
		return table.EmptyStandard(), nil
	}

	var tables []arrow.Table
	for _, iv := range w.intervals(start, end) {
		iv := iv
		var tbl arrow.Table
		err := w.withRetry(ctx, "get_data", selector, func(callCtx context.Context) error {
			t, err := w.data.GetData(callCtx, selector, iv.start, iv.end)
			if err != nil {
				return err
			}
			tbl = t
			return nil
		})
		if err != nil {
			return nil, err
		}
		if tbl != nil && tbl.NumRows() > 0 {
			tables = append(tables, tbl)
		}
	}
	return table.Concat(nil, tables)
}

// GetPlotData delegates a single retried call to the data adapter's
// optional plot capability; NotSupported if the adapter doesn't implement
// it. Unlike GetData, there is no interval splitting.
func (w *SourceWrapper) GetPlotData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time, intervalCount int) (arrow.Table, error) {
	plotSource, ok := w.data.(source.PlotSource)
	if !ok {
		return nil, errkind.NotSupportedError(component, "get_plot_data", fmt.Sprintf("source %q does not support plot data", w.name))
	}

	var tbl arrow.Table
	err := w.withRetry(ctx, "get_plot_data", selector, func(callCtx context.Context) error {
		t, err := plotSource.GetPlotData(callCtx, selector, start, end, intervalCount)
		if err != nil {
			return err
		}
		tbl = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tbl, nil
}

// GetSourceStructure delegates directly to the data adapter, returning nil
// when the adapter doesn't implement the optional capability.
func (w *SourceWrapper) GetSourceStructure(ctx context.Context, selector metadata.SeriesSelector) (*source.SourceStructure, error) {
	structureSource, ok := w.data.(source.StructureSource)
	if !ok {
		return nil, nil
	}

	var structure *source.SourceStructure
	err := w.withRetry(ctx, "get_source_structure", selector, func(callCtx context.Context) error {
		s, err := structureSource.GetSourceStructure(callCtx, selector)
		if err != nil {
			return err
		}
		structure = s
		return nil
	})
	if err != nil {
		if kind, ok := errkind.Of(err); ok && kind == errkind.NotSupported {
			return nil, nil
		}
		return nil, err
	}
	return structure, nil
}
