package source

import (
	"context"
	"io"

	"github.com/timeseer-ai/kukur-go/pkg/metadata"
)

// SearchItem is one element of a search stream: either a bare selector or a
// fully qualified Metadata. Exactly one of Selector or Metadata is set.
type SearchItem struct {
	Selector *metadata.SeriesSelector
	Metadata *metadata.Metadata
}

// ItemFromSelector wraps a bare selector as a search item.
func ItemFromSelector(s metadata.SeriesSelector) SearchItem {
	return SearchItem{Selector: &s}
}

// ItemFromMetadata wraps a fully qualified Metadata as a search item.
func ItemFromMetadata(m *metadata.Metadata) SearchItem {
	return SearchItem{Metadata: m}
}

// HasMetadata reports whether this item carries full metadata rather than
// a bare selector.
func (i SearchItem) HasMetadata() bool { return i.Metadata != nil }

// EffectiveSelector returns the selector identifying this item, whichever
// form it was carried in.
func (i SearchItem) EffectiveSelector() metadata.SeriesSelector {
	if i.Metadata != nil {
		return i.Metadata.Series
	}
	if i.Selector != nil {
		return *i.Selector
	}
	return metadata.SeriesSelector{}
}

// SearchIterator is a single-pass producer of search results. Next returns
// io.EOF once exhausted. Only the call that opens the iterator (Search) is
// covered by the dispatcher's retry policy; Next calls are not retried
// individually.
type SearchIterator interface {
	Next(ctx context.Context) (SearchItem, error)
	Close() error
}

// sliceIterator adapts an already-materialized slice of items to
// SearchIterator, for adapters whose backend already returns a complete
// list rather than a cursor (e.g. an in-process or small-config source).
type sliceIterator struct {
	items []SearchItem
	pos   int
}

// NewSliceIterator returns a SearchIterator over an in-memory slice.
func NewSliceIterator(items []SearchItem) SearchIterator {
	return &sliceIterator{items: items}
}

func (it *sliceIterator) Next(ctx context.Context) (SearchItem, error) {
	if err := ctx.Err(); err != nil {
		return SearchItem{}, err
	}
	if it.pos >= len(it.items) {
		return SearchItem{}, io.EOF
	}
	item := it.items[it.pos]
	it.pos++
	return item, nil
}

func (it *sliceIterator) Close() error { return nil }

// Drain reads every remaining item off it, closing it afterward. Useful in
// tests and in any collaborator (the facade's plain-JSON search response,
// for one) that needs the full result set rather than streaming it further.
func Drain(ctx context.Context, it SearchIterator) ([]SearchItem, error) {
	defer it.Close()
	var out []SearchItem
	for {
		item, err := it.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
}
