package sourcemem

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/timeseer-ai/kukur-go/pkg/errkind"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/source"
	"github.com/timeseer-ai/kukur-go/pkg/table"
)

// GetPlotData downsamples a series to at most intervalCount rows, evenly
// spaced across [start, end). It's deliberately simple - a reference
// adapter's plot endpoint exists so the dispatcher and RPC layer have a
// real Get ticket to exercise, not to demonstrate a production
// downsampling algorithm.
func (a *Adapter) GetPlotData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time, intervalCount int) (arrow.Table, error) {
	full, err := a.GetData(ctx, selector, start, end)
	if err != nil {
		return nil, err
	}
	defer full.Release()

	rows, err := table.Rows(full)
	if err != nil {
		return nil, err
	}
	if intervalCount <= 0 || len(rows) <= intervalCount {
		return table.New(nil, valueKindOf(full), table.HasQuality(full), rows)
	}

	step := float64(len(rows)) / float64(intervalCount)
	sampled := make([]table.Row, 0, intervalCount)
	for i := 0; i < intervalCount; i++ {
		idx := int(float64(i) * step)
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		sampled = append(sampled, rows[idx])
	}
	return table.New(nil, valueKindOf(full), table.HasQuality(full), sampled)
}

func valueKindOf(t arrow.Table) table.ValueKind {
	kind, _ := table.ValueKindOf(t)
	return kind
}

// GetSourceStructure enumerates the tag keys, tag values, and fields known
// across every series this adapter holds.
func (a *Adapter) GetSourceStructure(ctx context.Context, selector metadata.SeriesSelector) (*source.SourceStructure, error) {
	tagKeySet := map[string]bool{}
	fieldSet := map[string]bool{}
	type tv struct{ key, value string }
	tagValueSet := map[tv]bool{}

	for _, s := range a.series {
		fieldSet[s.Field] = true
		for k, v := range s.Tags {
			tagKeySet[k] = true
			tagValueSet[tv{k, v}] = true
		}
	}

	out := &source.SourceStructure{}
	for k := range tagKeySet {
		out.TagKeys = append(out.TagKeys, k)
	}
	sort.Strings(out.TagKeys)
	for k := range fieldSet {
		out.Fields = append(out.Fields, k)
	}
	sort.Strings(out.Fields)
	for pair := range tagValueSet {
		out.TagValues = append(out.TagValues, source.TagValue{Key: pair.key, Value: pair.value})
	}
	sort.Slice(out.TagValues, func(i, j int) bool {
		if out.TagValues[i].Key != out.TagValues[j].Key {
			return out.TagValues[i].Key < out.TagValues[j].Key
		}
		return out.TagValues[i].Value < out.TagValues[j].Value
	})

	if len(a.series) == 0 {
		return nil, errkind.NotSupportedError(component, "get_source_structure", fmt.Sprintf("source %q has no series registered", a.name))
	}
	return out, nil
}
