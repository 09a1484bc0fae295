// Package source defines the contract every backend adapter (SQL dialect,
// object store, historian HTTP client, message store, or another gateway)
// must satisfy to be dispatched to. It is the one polymorphic interface in
// the system: optional capabilities are expressed as additional interfaces
// an adapter may also implement, not as a deep inheritance hierarchy.
package source

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/timeseer-ai/kukur-go/pkg/metadata"
)

// Source is the contract every adapter implements. Search returns a lazy,
// single-pass iterator; callers must iterate it to completion or Close it
// explicitly. Adapters must not retry internally - retry is the
// dispatcher's responsibility.
type Source interface {
	Search(ctx context.Context, selector metadata.SeriesSelector) (SearchIterator, error)
	GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error)
	GetData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time) (arrow.Table, error)
}

// PlotSource is the optional capability for downsampled, visualization-
// oriented data. An adapter that doesn't implement it reports NotSupported
// when a plot request reaches it.
type PlotSource interface {
	GetPlotData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time, intervalCount int) (arrow.Table, error)
}

// StructureSource is the optional capability for enumerating a source's
// known tag keys, tag values, and fields.
type StructureSource interface {
	GetSourceStructure(ctx context.Context, selector metadata.SeriesSelector) (*SourceStructure, error)
}

// SupportsPlot reports whether s implements PlotSource.
func SupportsPlot(s Source) bool {
	_, ok := s.(PlotSource)
	return ok
}

// SupportsStructure reports whether s implements StructureSource.
func SupportsStructure(s Source) bool {
	_, ok := s.(StructureSource)
	return ok
}
