// Package registry builds dispatcher.SourceWrapper instances from
// configuration: it resolves each configured source's data adapter,
// metadata adapter, auxiliary metadata sources, and query policy, and is
// itself the only place in this repository that knows how to turn an
// adapter type name into a running adapter.
package registry

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/timeseer-ai/kukur-go/internal/dispatcher"
	"github.com/timeseer-ai/kukur-go/pkg/errkind"
	"github.com/timeseer-ai/kukur-go/pkg/quality"
	"github.com/timeseer-ai/kukur-go/pkg/source"
)

const component = "registry"

// AdapterDeps is the explicit dependency bundle every adapter factory
// receives, standing in for the original factory's reflection-by-parameter-
// name injection: a factory that needs none of the mappers simply ignores
// them.
type AdapterDeps struct {
	Quality     *quality.Mapper
	FieldMapper *quality.FieldMapper
	ValueMapper *quality.ValueMapper
	RawConfig   map[string]interface{}
}

// AdapterFactory builds a source.Source for one configured source entry.
type AdapterFactory func(name string, deps AdapterDeps) (source.Source, error)

// SourceConfig is one entry under the configuration's "source" or
// "metadata" section: adapter-agnostic keys the registry itself consumes,
// plus whatever adapter-specific keys that adapter type expects, all kept
// together the way the configuration file itself keeps them together.
type SourceConfig struct {
	Type                 string
	MetadataType         string
	MetadataSources      []string
	MetadataMapping      string
	MetadataValueMapping string
	QualityMapping       string
	// Fields is the whitelist an entry under the "metadata" section
	// restricts its contribution to; empty means "every field".
	Fields []string

	DataQueryIntervalSeconds float64
	QueryRetryCount          int
	QueryRetryDelaySeconds   float64
	QueryTimeoutSeconds      float64

	Raw map[string]interface{}
}

// NamedSourceConfig pairs a configured source's name with its entry,
// kept as an ordered slice (rather than a map) so Sources can preserve
// configuration order: spec §5 requires list_sources to be deterministic
// in that order, which a Go map cannot represent.
type NamedSourceConfig struct {
	Name   string
	Config SourceConfig
}

// Config is the registry's full input: the named sources to expose, the
// named auxiliary metadata sources available to them, and the named
// metadata field/value mapping dictionaries sources may reference.
type Config struct {
	Sources              []NamedSourceConfig
	Metadata             map[string]SourceConfig
	MetadataMapping      map[string]map[string]string
	MetadataValueMapping map[string]map[string]map[string]interface{}
	QualityMapping       map[string]map[string]interface{}
}

// Registry holds the SourceWrapper built for every configured source,
// constructed once at startup and read-only thereafter.
type Registry struct {
	wrappers map[string]*dispatcher.SourceWrapper
	names    []string
}

// New builds every configured source's SourceWrapper. It fails fast: the
// first invalid source configuration aborts the whole build, matching the
// "fatal for that source" severity spec assigns InvalidSource - since an
// unusable registry is not safe to serve from.
func New(cfg Config, factories map[string]AdapterFactory, logger *logrus.Logger) (*Registry, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	auxiliary, err := buildAuxiliarySources(cfg, factories)
	if err != nil {
		return nil, err
	}

	reg := &Registry{wrappers: map[string]*dispatcher.SourceWrapper{}}
	for _, named := range cfg.Sources {
		wrapper, err := buildSource(named.Name, named.Config, cfg, factories, auxiliary, logger)
		if err != nil {
			return nil, err
		}
		reg.wrappers[named.Name] = wrapper
		reg.names = append(reg.names, named.Name)
	}
	return reg, nil
}

// DefaultFactories returns the adapter factories this repository ships:
// "memory", the in-memory reference adapter. A caller registering its own
// adapter types starts from this map and adds to it, mirroring the original
// factory's register_source.
func DefaultFactories() map[string]AdapterFactory {
	return map[string]AdapterFactory{
		"memory": MemoryAdapterFactory,
	}
}

// Get returns the SourceWrapper configured under name, or false when no
// such source exists.
func (r *Registry) Get(name string) (*dispatcher.SourceWrapper, bool) {
	w, ok := r.wrappers[name]
	return w, ok
}

// Names returns every configured source name.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func buildAuxiliarySources(cfg Config, factories map[string]AdapterFactory) (map[string]dispatcher.AuxiliarySource, error) {
	aux := map[string]dispatcher.AuxiliarySource{}
	for name, sourceCfg := range cfg.Metadata {
		if sourceCfg.Type == "" {
			return nil, errkind.InvalidSourceError(component, "build", fmt.Sprintf("metadata source %q has no type", name))
		}
		adapter, err := makeAdapter(name, sourceCfg, cfg, factories)
		if err != nil {
			return nil, err
		}
		aux[name] = dispatcher.AuxiliarySource{Source: adapter, Fields: sourceCfg.Fields}
	}
	return aux, nil
}

func buildSource(name string, cfg SourceConfig, full Config, factories map[string]AdapterFactory, auxiliary map[string]dispatcher.AuxiliarySource, logger *logrus.Logger) (*dispatcher.SourceWrapper, error) {
	if cfg.Type == "" {
		return nil, errkind.InvalidSourceError(component, "build", fmt.Sprintf("%q has no type", name))
	}

	dataAdapter, err := makeAdapter(name, cfg, full, factories)
	if err != nil {
		return nil, err
	}

	metadataAdapter := dataAdapter
	metadataType := cfg.MetadataType
	if metadataType == "" {
		metadataType = cfg.Type
	}
	if metadataType != cfg.Type {
		metadataCfg := cfg
		metadataCfg.Type = metadataType
		metadataAdapter, err = makeAdapter(name, metadataCfg, full, factories)
		if err != nil {
			return nil, err
		}
	}

	var sources []dispatcher.AuxiliarySource
	for _, auxName := range cfg.MetadataSources {
		auxSource, ok := auxiliary[auxName]
		if !ok {
			return nil, errkind.InvalidSourceError(component, "build", fmt.Sprintf("metadata source %q for source %q not found", auxName, name))
		}
		sources = append(sources, auxSource)
	}

	options := dispatcher.Options{
		DataQueryInterval: secondsToDuration(cfg.DataQueryIntervalSeconds),
		QueryRetryCount:   cfg.QueryRetryCount,
		QueryRetryDelay:   secondsToDuration(cfg.QueryRetryDelaySeconds),
		QueryTimeout:      secondsToDuration(cfg.QueryTimeoutSeconds),
	}
	return dispatcher.NewSourceWrapper(name, dataAdapter, metadataAdapter, sources, options, logger), nil
}

func makeAdapter(name string, cfg SourceConfig, full Config, factories map[string]AdapterFactory) (source.Source, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, errkind.InvalidSourceError(component, "build", fmt.Sprintf("source %q has unknown type %q", name, cfg.Type))
	}

	qualityMapper, err := resolveQualityMapper(full, cfg.QualityMapping)
	if err != nil {
		return nil, errkind.InvalidSourceError(component, "build", fmt.Sprintf("source %q: %s", name, err)).Wrap(err)
	}

	deps := AdapterDeps{
		Quality:     qualityMapper,
		FieldMapper: resolveFieldMapper(full, cfg.MetadataMapping),
		ValueMapper: resolveValueMapper(full, cfg.MetadataValueMapping),
		RawConfig:   cfg.Raw,
	}
	adapter, err := factory(name, deps)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

func resolveQualityMapper(full Config, name string) (*quality.Mapper, error) {
	if name == "" {
		return quality.NewMapper(), nil
	}
	cfg, ok := full.QualityMapping[name]
	if !ok {
		return quality.NewMapper(), nil
	}
	return quality.FromConfig(cfg)
}

func resolveFieldMapper(full Config, name string) *quality.FieldMapper {
	if name == "" {
		return quality.NewFieldMapper()
	}
	cfg, ok := full.MetadataMapping[name]
	if !ok {
		return quality.NewFieldMapper()
	}
	return quality.FieldMapperFromConfig(cfg)
}

func resolveValueMapper(full Config, name string) *quality.ValueMapper {
	if name == "" {
		return quality.NewValueMapper()
	}
	cfg, ok := full.MetadataValueMapping[name]
	if !ok {
		return quality.NewValueMapper()
	}
	return quality.ValueMapperFromConfig(cfg)
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
