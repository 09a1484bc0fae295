package sourcemem

import (
	"time"

	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/table"
)

// Builder assembles a Series programmatically, so tests need not build
// Series and table.Row values by hand. The registry's factory for the
// "memory" adapter type does not use it; it fills Series values directly.
type Builder struct {
	series Series
}

// NewBuilder starts a Series for the flat-namespace name on the default
// field, storing int64 values by default.
func NewBuilder(name string) *Builder {
	return &Builder{
		series: Series{
			Tags:      map[string]string{metadata.SeriesNameTag: name},
			Field:     metadata.DefaultField,
			ValueKind: table.ValueInt64,
		},
	}
}

// WithTags replaces the series' tags (the "series name" tag, if wanted,
// must be included explicitly).
func (b *Builder) WithTags(tags map[string]string) *Builder {
	b.series.Tags = tags
	return b
}

// WithField sets the field this series answers for.
func (b *Builder) WithField(field string) *Builder {
	b.series.Field = field
	return b
}

// WithValueKind sets the Arrow value column type GetData answers with.
func (b *Builder) WithValueKind(kind table.ValueKind) *Builder {
	b.series.ValueKind = kind
	return b
}

// WithRow appends one (timestamp, value) row with no native quality code.
func (b *Builder) WithRow(ts time.Time, value interface{}) *Builder {
	b.series.Rows = append(b.series.Rows, table.Row{Timestamp: ts, Value: value})
	b.series.RawQuality = append(b.series.RawQuality, nil)
	return b
}

// WithQualifiedRow appends one row with a native backend quality code,
// to be mapped through the quality mapper on read.
func (b *Builder) WithQualifiedRow(ts time.Time, value interface{}, rawQuality interface{}) *Builder {
	b.series.Rows = append(b.series.Rows, table.Row{Timestamp: ts, Value: value})
	b.series.RawQuality = append(b.series.RawQuality, rawQuality)
	return b
}

// WithRawMetadata sets the native (pre-mapping) metadata field map this
// series answers GetMetadata with.
func (b *Builder) WithRawMetadata(fields map[string]interface{}) *Builder {
	b.series.RawMetadata = fields
	return b
}

// AnnounceFull marks this series to be emitted with full Metadata during
// Search, rather than a bare selector.
func (b *Builder) AnnounceFull() *Builder {
	b.series.AnnounceFull = true
	return b
}

// Build returns the assembled Series.
func (b *Builder) Build() Series {
	return b.series
}
