package dispatcher

import (
	"context"

	"github.com/timeseer-ai/kukur-go/pkg/metadata"
)

// GetMetadata returns selector's fully composed metadata: an empty
// Metadata(selector) when the series name tag is absent, otherwise the
// primary metadata adapter's result merged over the auxiliary sources in
// reverse configured order, so that the primary wins and, among
// auxiliaries, the earlier-listed one wins.
func (w *SourceWrapper) GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error) {
	if selector.Name() == "" {
		return metadata.New(selector), nil
	}

	acc := metadata.New(selector)
	for i := len(w.auxiliary) - 1; i >= 0; i-- {
		aux := w.auxiliary[i]
		received, err := w.callGetMetadata(ctx, aux.Source, selector)
		if err != nil {
			return nil, err
		}
		mergeFields(acc, received, aux.Fields, true)
	}

	primary, err := w.callGetMetadata(ctx, w.metadataAdapter, selector)
	if err != nil {
		return nil, err
	}
	mergeFields(acc, primary, nil, true)
	return acc, nil
}

func (w *SourceWrapper) callGetMetadata(ctx context.Context, adapter metadataGetter, selector metadata.SeriesSelector) (*metadata.Metadata, error) {
	var result *metadata.Metadata
	err := w.withRetry(ctx, "get_metadata", selector, func(callCtx context.Context) error {
		m, err := adapter.GetMetadata(callCtx, selector)
		if err != nil {
			return err
		}
		result = m
		return nil
	})
	return result, err
}

// metadataGetter is the single method dispatcher needs from an adapter to
// resolve metadata, narrow enough that both a full source.Source and a
// fake in tests satisfy it trivially.
type metadataGetter interface {
	GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error)
}

// mergeFields copies fields set (non-null, non-empty) on src into dst.
// With fields empty, every registered field and every unknown field is a
// candidate; otherwise only the named fields are. When overwrite is true,
// a set field on src always replaces dst's value (used for reverse
// composition, where call order alone encodes precedence); when false, a
// field already set on dst is left untouched (used for search's
// fill-missing, earlier-auxiliary-wins composition).
func mergeFields(dst, src *metadata.Metadata, fields []string, overwrite bool) {
	if len(fields) == 0 {
		for _, f := range metadata.Fields() {
			if !src.IsSet(f) {
				continue
			}
			if overwrite || !dst.IsSet(f) {
				dst.Set(f, src.Get(f))
			}
		}
		for name, v := range src.UnknownFields() {
			mergeUnknown(dst, name, v, overwrite)
		}
		return
	}

	for _, name := range fields {
		if f, found := metadata.FindField(name); found {
			if !src.IsSet(f) {
				continue
			}
			if overwrite || !dst.IsSet(f) {
				dst.Set(f, src.Get(f))
			}
			continue
		}
		v, ok := src.GetByName(name)
		if !ok {
			continue
		}
		mergeUnknown(dst, name, v, overwrite)
	}
}

func mergeUnknown(dst *metadata.Metadata, name string, v interface{}, overwrite bool) {
	if !valueIsSet(v) {
		return
	}
	if !overwrite {
		if existing, ok := dst.GetByName(name); ok && valueIsSet(existing) {
			return
		}
	}
	dst.SetByName(name, v)
}

// valueIsSet is the "non-null, non-empty" test the dispatch contract uses
// for fields with no registered default to compare against.
func valueIsSet(v interface{}) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}
