package dispatcher

import (
	"context"

	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/source"
)

// Search streams the primary metadata adapter's search results, lazily
// filling in empty/null fields of each full-metadata result from the
// configured auxiliary sources (earlier-listed wins; a field already set by
// the primary result is never overwritten). Bare-selector results and
// full-metadata results are passed through untouched whenever there are no
// auxiliary sources to consult.
func (w *SourceWrapper) Search(ctx context.Context, selector metadata.SeriesSelector) (source.SearchIterator, error) {
	var inner source.SearchIterator
	err := w.withRetry(ctx, "search", selector, func(callCtx context.Context) error {
		it, err := w.metadataAdapter.Search(callCtx, selector)
		if err != nil {
			return err
		}
		inner = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &searchComposer{wrapper: w, inner: inner}, nil
}

// searchComposer applies auxiliary metadata fill-in to each item as it's
// pulled, so the dispatcher never materializes the whole search stream.
type searchComposer struct {
	wrapper *SourceWrapper
	inner   source.SearchIterator
}

func (c *searchComposer) Next(ctx context.Context) (source.SearchItem, error) {
	item, err := c.inner.Next(ctx)
	if err != nil {
		return source.SearchItem{}, err
	}
	if !item.HasMetadata() || len(c.wrapper.auxiliary) == 0 {
		return item, nil
	}
	sel := item.Metadata.Series
	if sel.Name() == "" {
		return item, nil
	}

	merged := item.Metadata.Clone()
	for _, aux := range c.wrapper.auxiliary {
		received, err := c.wrapper.callGetMetadata(ctx, aux.Source, sel)
		if err != nil {
			return source.SearchItem{}, err
		}
		mergeFields(merged, received, aux.Fields, false)
	}
	return source.ItemFromMetadata(merged), nil
}

func (c *searchComposer) Close() error {
	return c.inner.Close()
}
