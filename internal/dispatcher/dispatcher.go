// Package dispatcher implements the per-source query policy that sits
// between the application facade and a backend adapter: search and metadata
// composition across a primary adapter and any auxiliary metadata sources,
// data-fetch interval splitting with value-type reconciling concatenation,
// and the retry loop every adapter call goes through.
package dispatcher

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/timeseer-ai/kukur-go/pkg/source"
)

const component = "dispatcher"

// AuxiliarySource is one configured metadata source feeding into a
// SourceWrapper's metadata composition, plus the optional field whitelist
// that restricts which fields it's allowed to contribute.
type AuxiliarySource struct {
	Source source.Source
	Fields []string
}

// Options carries a source's query policy: interval splitting, retry count
// and delay, and an optional per-call timeout.
type Options struct {
	DataQueryInterval time.Duration
	QueryRetryCount   int
	QueryRetryDelay   time.Duration
	QueryTimeout      time.Duration
}

// SourceWrapper composes one data adapter, one metadata adapter (which may
// be the same instance as the data adapter), an ordered list of auxiliary
// metadata sources, and a query policy into the single object the facade
// dispatches every request for a configured source through.
type SourceWrapper struct {
	name            string
	data            source.Source
	metadataAdapter source.Source
	auxiliary       []AuxiliarySource
	options         Options
	logger          *logrus.Logger
}

// NewSourceWrapper builds a SourceWrapper. metadataAdapter may be the same
// value as data when the source configuration names no distinct
// metadata_type.
func NewSourceWrapper(name string, data, metadataAdapter source.Source, auxiliary []AuxiliarySource, options Options, logger *logrus.Logger) *SourceWrapper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SourceWrapper{
		name:            name,
		data:            data,
		metadataAdapter: metadataAdapter,
		auxiliary:       auxiliary,
		options:         options,
		logger:          logger,
	}
}

// Name returns the configured name this wrapper was built for.
func (w *SourceWrapper) Name() string { return w.name }

type interval struct {
	start, end time.Time
}

// intervals splits [start, end) into contiguous half-open sub-intervals of
// DataQueryInterval, the last truncated to end; a single [start, end)
// interval when no splitting is configured.
func (w *SourceWrapper) intervals(start, end time.Time) []interval {
	if w.options.DataQueryInterval <= 0 {
		return []interval{{start, end}}
	}
	var out []interval
	cur := start
	for cur.Before(end) {
		next := cur.Add(w.options.DataQueryInterval)
		if next.After(end) {
			next = end
		}
		out = append(out, interval{cur, next})
		cur = next
	}
	return out
}
