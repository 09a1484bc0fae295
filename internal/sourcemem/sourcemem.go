// Package sourcemem is a fully in-memory reference implementation of the
// source.Source contract (plus both optional capabilities). It ships in
// this repository purely so the registry, dispatcher, RPC surface, and CLI
// have a real backend to exercise end-to-end; it is not a production
// backend adapter (those are out of scope) but a test and demonstration
// collaborator.
package sourcemem

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/timeseer-ai/kukur-go/pkg/errkind"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/quality"
	"github.com/timeseer-ai/kukur-go/pkg/source"
	"github.com/timeseer-ai/kukur-go/pkg/table"
)

const component = "sourcemem"

// Series is one time series as this adapter's backend would natively
// store it: rows with a native quality code per row (mapped through the
// quality mapper on read) and a raw metadata field map (mapped through the
// field-name and field-value mappers on read), demonstrating how a real
// adapter uses the mappers its factory was handed.
type Series struct {
	Tags      map[string]string
	Field     string
	ValueKind table.ValueKind

	Rows         []table.Row
	RawQuality   []interface{} // parallel to Rows; nil entries mean "no quality for this row"
	RawMetadata  map[string]interface{}
	AnnounceFull bool // if true, Search emits full Metadata for this series instead of a bare selector
}

func (s Series) selector(sourceName string) metadata.SeriesSelector {
	return metadata.NewSeriesSelector(sourceName, s.Tags, s.Field)
}

func (s Series) matches(sel metadata.SeriesSelector, name string) bool {
	if s.Field != sel.Field {
		return false
	}
	for k, v := range sel.Tags {
		if s.Tags[k] != v {
			return false
		}
	}
	return true
}

// Adapter is the in-memory Source. It implements source.Source,
// source.PlotSource, and source.StructureSource.
type Adapter struct {
	name        string
	series      []Series
	quality     *quality.Mapper
	fieldMapper *quality.FieldMapper
	valueMapper *quality.ValueMapper
}

// New builds an Adapter. A nil mapper defaults to an empty (pass-through)
// one, matching how the registry resolves an unconfigured mapping name.
func New(name string, series []Series, qualityMapper *quality.Mapper, fieldMapper *quality.FieldMapper, valueMapper *quality.ValueMapper) *Adapter {
	if qualityMapper == nil {
		qualityMapper = quality.NewMapper()
	}
	if fieldMapper == nil {
		fieldMapper = quality.NewFieldMapper()
	}
	if valueMapper == nil {
		valueMapper = quality.NewValueMapper()
	}
	return &Adapter{name: name, series: series, quality: qualityMapper, fieldMapper: fieldMapper, valueMapper: valueMapper}
}

func (a *Adapter) find(sel metadata.SeriesSelector) (Series, bool) {
	for _, s := range a.series {
		if s.matches(sel, a.name) {
			return s, true
		}
	}
	return Series{}, false
}

// Search streams every registered series whose tags do not conflict with
// the selector's populated tags: a series that lacks one of those tags is
// still included, and the selector's field does not narrow the result. A
// selector with no tags matches every series.
func (a *Adapter) Search(ctx context.Context, selector metadata.SeriesSelector) (source.SearchIterator, error) {
	var items []source.SearchItem
	for _, s := range a.series {
		if !matchesNarrowing(s, selector) {
			continue
		}
		sel := s.selector(a.name)
		if s.AnnounceFull {
			md, err := a.buildMetadata(sel, s)
			if err != nil {
				return nil, err
			}
			items = append(items, source.ItemFromMetadata(md))
			continue
		}
		items = append(items, source.ItemFromSelector(sel))
	}
	return source.NewSliceIterator(items), nil
}

func matchesNarrowing(s Series, selector metadata.SeriesSelector) bool {
	for k, v := range selector.Tags {
		if sv, ok := s.Tags[k]; ok && sv != v {
			return false
		}
	}
	return true
}

// GetMetadata returns the fully qualified metadata for exactly one series.
func (a *Adapter) GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error) {
	s, ok := a.find(selector)
	if !ok {
		return nil, errkind.InvalidDataError(component, "get_metadata", fmt.Sprintf("no such series: %s", selector.String()))
	}
	return a.buildMetadata(s.selector(a.name), s)
}

func (a *Adapter) buildMetadata(sel metadata.SeriesSelector, s Series) (*metadata.Metadata, error) {
	m := metadata.New(sel)
	// Keys in RawMetadata are iterated in sorted order so results are
	// deterministic despite Go's randomized map iteration.
	keys := make([]string, 0, len(s.RawMetadata))
	for k := range s.RawMetadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, nativeName := range keys {
		canonical := a.fieldMapper.ToCanonical(nativeName)
		mapped := a.valueMapper.FromSource(canonical, s.RawMetadata[nativeName])
		if err := m.CoerceByName(canonical, mapped); err != nil {
			return nil, errkind.InvalidMetadataError(component, "get_metadata", err.Error()).Wrap(err)
		}
	}
	return m, nil
}

// GetData returns the series' rows in [start, end), with quality codes
// mapped through the quality mapper when one is configured.
func (a *Adapter) GetData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time) (arrow.Table, error) {
	if !start.Before(end) {
		return table.EmptyStandard(), nil
	}
	s, ok := a.find(selector)
	if !ok {
		return nil, errkind.InvalidDataError(component, "get_data", fmt.Sprintf("no such series: %s", selector.String()))
	}

	withQuality := a.quality.IsPresent() && len(s.RawQuality) > 0
	sourceRows := s.Rows
	if withQuality {
		sourceRows = a.applyQualityMapping(s)
	}
	rows := table.FilterRange(sourceRows, start, end)
	return table.New(nil, s.ValueKind, withQuality, rows)
}

// applyQualityMapping maps each row's native quality code through the
// configured quality mapper, producing rows with Kukur's {GOOD, BAD} int8
// quality alongside each value.
func (a *Adapter) applyQualityMapping(s Series) []table.Row {
	out := make([]table.Row, len(s.Rows))
	copy(out, s.Rows)
	for i := range out {
		if i >= len(s.RawQuality) || s.RawQuality[i] == nil {
			continue
		}
		q := a.quality.FromSource(s.RawQuality[i])
		out[i].Quality = &q
	}
	return out
}
