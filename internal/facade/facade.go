// Package facade is the application facade (C6): the single entry point
// the RPC surface and the CLI both call through. It routes every request
// to the named source's dispatcher.SourceWrapper and surfaces UnknownSource
// for a name the registry doesn't have.
package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/timeseer-ai/kukur-go/internal/apikey"
	"github.com/timeseer-ai/kukur-go/internal/dispatcher"
	"github.com/timeseer-ai/kukur-go/internal/registry"
	"github.com/timeseer-ai/kukur-go/pkg/errkind"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
	"github.com/timeseer-ai/kukur-go/pkg/source"
)

const component = "facade"

// Facade is the application's single routing point: one registry of
// configured sources, one API-key store.
type Facade struct {
	registry *registry.Registry
	apiKeys  *apikey.Store
}

// New wires a Facade from an already-built registry and API-key store.
// Constructing both of those - running migrations, building adapters - is
// the caller's (internal/app's) job; Facade only routes.
func New(reg *registry.Registry, apiKeys *apikey.Store) *Facade {
	return &Facade{registry: reg, apiKeys: apiKeys}
}

func (f *Facade) lookup(sourceName string) (*dispatcher.SourceWrapper, error) {
	wrapper, ok := f.registry.Get(sourceName)
	if !ok {
		return nil, errkind.UnknownSourceError(component, "lookup", fmt.Sprintf("unknown source %q", sourceName))
	}
	return wrapper, nil
}

// Search streams search results for selector's source.
func (f *Facade) Search(ctx context.Context, selector metadata.SeriesSelector) (source.SearchIterator, error) {
	wrapper, err := f.lookup(selector.Source)
	if err != nil {
		return nil, err
	}
	return wrapper.Search(ctx, selector)
}

// GetMetadata returns selector's composed metadata.
func (f *Facade) GetMetadata(ctx context.Context, selector metadata.SeriesSelector) (*metadata.Metadata, error) {
	wrapper, err := f.lookup(selector.Source)
	if err != nil {
		return nil, err
	}
	return wrapper.GetMetadata(ctx, selector)
}

// GetData returns selector's data over [start, end).
func (f *Facade) GetData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time) (arrow.Table, error) {
	wrapper, err := f.lookup(selector.Source)
	if err != nil {
		return nil, err
	}
	return wrapper.GetData(ctx, selector, start, end)
}

// GetPlotData returns selector's downsampled data over [start, end), when
// the source's adapter supports it.
func (f *Facade) GetPlotData(ctx context.Context, selector metadata.SeriesSelector, start, end time.Time, intervalCount int) (arrow.Table, error) {
	wrapper, err := f.lookup(selector.Source)
	if err != nil {
		return nil, err
	}
	return wrapper.GetPlotData(ctx, selector, start, end, intervalCount)
}

// GetSourceStructure returns selector's source structure, or nil when the
// source's adapter doesn't support it.
func (f *Facade) GetSourceStructure(ctx context.Context, selector metadata.SeriesSelector) (*source.SourceStructure, error) {
	wrapper, err := f.lookup(selector.Source)
	if err != nil {
		return nil, err
	}
	return wrapper.GetSourceStructure(ctx, selector)
}

// ListSources returns every configured source name in configuration order.
func (f *Facade) ListSources() []string {
	return f.registry.Names()
}

// ApiKeys returns the API-key management handle for C7 operations.
func (f *Facade) ApiKeys() *apikey.Store {
	return f.apiKeys
}
