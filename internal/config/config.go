// Package config loads Kukur's hierarchical YAML configuration: the
// flight/data_dir/logging ambient keys spec §6 names, plus the source
// registry tree internal/registry builds adapters from. It follows the
// teacher's internal/config package: a file is loaded, defaults are
// applied to anything left unset, environment variables override specific
// keys, and the whole thing is validated before the caller is allowed to
// start serving.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/timeseer-ai/kukur-go/internal/registry"
	"github.com/timeseer-ai/kukur-go/pkg/errkind"
)

const component = "config"

// FlightConfig is the `flight.*` section: where the RPC surface listens and
// how it authenticates callers.
type FlightConfig struct {
	Host string
	Port int
	// Authentication is "basic" (validate against the api-key store) or
	// "no-auth" (skip validation entirely, for trusted deployments).
	Authentication string
}

// LoggingConfig is the `logging.*` section.
type LoggingConfig struct {
	Level  string
	Format string
	// Path is the log output file; empty means stderr.
	Path string
}

// MetricsConfig is the `metrics.*` section: Kukur carries the teacher's
// own enable/port split so the Prometheus endpoint can be switched off or
// moved without touching the flight listener.
type MetricsConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// Config is Kukur's full runtime configuration.
type Config struct {
	Flight   FlightConfig
	DataDir  string
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Registry registry.Config
}

// ApiKeyDatabasePath is the path C7's sqlite store opens, per spec §6's
// "one file per repository under data_dir (e.g. api_key.sqlite)".
func (c *Config) ApiKeyDatabasePath() string {
	return filepath.Join(c.DataDir, "api_key.sqlite")
}

// rawDocument is the shape gopkg.in/yaml.v2 decodes one configuration file
// into. Source is a yaml.MapSlice rather than a plain map so the order its
// entries appeared in the file survives decoding - a plain map would lose
// it, and spec §5 requires list_sources to be deterministic in that order.
type rawDocument struct {
	Flight               map[string]interface{} `yaml:"flight"`
	DataDir              string                  `yaml:"data_dir"`
	Logging              map[string]interface{}  `yaml:"logging"`
	Metrics              map[string]interface{}  `yaml:"metrics"`
	Source               yaml.MapSlice           `yaml:"source"`
	Metadata             map[string]interface{}  `yaml:"metadata"`
	MetadataMapping      map[string]interface{}  `yaml:"metadata_mapping"`
	MetadataValueMapping map[string]interface{}  `yaml:"metadata_value_mapping"`
	QualityMapping       map[string]interface{}  `yaml:"quality_mapping"`
	Include              includeConfig           `yaml:"include"`
}

type includeConfig struct {
	Glob []string `yaml:"glob"`
}

// LoadConfig reads configFile, resolves any include.glob files into it,
// applies defaults and environment overrides, and validates the result.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, errkind.InvalidConfigurationError(component, "load", fmt.Sprintf("reading %s", configFile)).Wrap(err)
	}

	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errkind.InvalidConfigurationError(component, "load", fmt.Sprintf("parsing %s", configFile)).Wrap(err)
	}

	sourceOrder := orderedSourceNames(doc.Source)
	tree, err := documentToTree(doc)
	if err != nil {
		return nil, err
	}

	includeDir := filepath.Dir(configFile)
	for _, pattern := range doc.Include.Glob {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(includeDir, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errkind.InvalidConfigurationError(component, "load", fmt.Sprintf("invalid include.glob pattern %q", pattern)).Wrap(err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			includedTree, includedOrder, err := loadIncludedFile(match)
			if err != nil {
				return nil, err
			}
			tree = mergeConfigTrees(tree, includedTree)
			sourceOrder = appendNewNames(sourceOrder, includedOrder)
		}
	}

	cfg, err := configFromTree(tree, sourceOrder)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadIncludedFile(path string) (map[string]interface{}, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errkind.InvalidConfigurationError(component, "load", fmt.Sprintf("reading included file %s", path)).Wrap(err)
	}
	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, errkind.InvalidConfigurationError(component, "load", fmt.Sprintf("parsing included file %s", path)).Wrap(err)
	}
	tree, err := documentToTree(doc)
	if err != nil {
		return nil, nil, err
	}
	return tree, orderedSourceNames(doc.Source), nil
}

func documentToTree(doc rawDocument) (map[string]interface{}, error) {
	tree := map[string]interface{}{}
	if doc.Flight != nil {
		tree["flight"] = normalizeYAML(doc.Flight)
	}
	if doc.DataDir != "" {
		tree["data_dir"] = doc.DataDir
	}
	if doc.Logging != nil {
		tree["logging"] = normalizeYAML(doc.Logging)
	}
	if doc.Metrics != nil {
		tree["metrics"] = normalizeYAML(doc.Metrics)
	}
	if len(doc.Source) > 0 {
		sourceMap := map[string]interface{}{}
		for _, item := range doc.Source {
			name, ok := item.Key.(string)
			if !ok {
				return nil, errkind.InvalidConfigurationError(component, "load", "source section has a non-string key")
			}
			sourceMap[name] = normalizeYAML(item.Value)
		}
		tree["source"] = sourceMap
	}
	if doc.Metadata != nil {
		tree["metadata"] = normalizeYAML(doc.Metadata)
	}
	if doc.MetadataMapping != nil {
		tree["metadata_mapping"] = normalizeYAML(doc.MetadataMapping)
	}
	if doc.MetadataValueMapping != nil {
		tree["metadata_value_mapping"] = normalizeYAML(doc.MetadataValueMapping)
	}
	if doc.QualityMapping != nil {
		tree["quality_mapping"] = normalizeYAML(doc.QualityMapping)
	}
	return tree, nil
}

func orderedSourceNames(source yaml.MapSlice) []string {
	names := make([]string, 0, len(source))
	for _, item := range source {
		if name, ok := item.Key.(string); ok {
			names = append(names, name)
		}
	}
	return names
}

func appendNewNames(existing, additional []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, name := range existing {
		seen[name] = true
	}
	for _, name := range additional {
		if !seen[name] {
			existing = append(existing, name)
			seen[name] = true
		}
	}
	return existing
}

func configFromTree(tree map[string]interface{}, sourceOrder []string) (*Config, error) {
	cfg := &Config{}

	if flightRaw, ok := tree["flight"].(map[string]interface{}); ok {
		cfg.Flight.Host, _ = flightRaw["host"].(string)
		cfg.Flight.Authentication, _ = flightRaw["authentication"].(string)
		if port, ok := flightRaw["port"].(int); ok {
			cfg.Flight.Port = port
		} else if port, ok := flightRaw["port"].(float64); ok {
			cfg.Flight.Port = int(port)
		}
	}

	cfg.DataDir, _ = tree["data_dir"].(string)

	if loggingRaw, ok := tree["logging"].(map[string]interface{}); ok {
		cfg.Logging.Level, _ = loggingRaw["level"].(string)
		cfg.Logging.Format, _ = loggingRaw["format"].(string)
		cfg.Logging.Path, _ = loggingRaw["path"].(string)
	}

	cfg.Metrics.Enabled = true
	if metricsRaw, ok := tree["metrics"].(map[string]interface{}); ok {
		if enabled, ok := metricsRaw["enabled"].(bool); ok {
			cfg.Metrics.Enabled = enabled
		}
		cfg.Metrics.Host, _ = metricsRaw["host"].(string)
		if port, ok := metricsRaw["port"].(int); ok {
			cfg.Metrics.Port = port
		} else if port, ok := metricsRaw["port"].(float64); ok {
			cfg.Metrics.Port = int(port)
		}
	}

	reg, err := registry.ConfigFromMap(tree, sourceOrder)
	if err != nil {
		return nil, errkind.InvalidConfigurationError(component, "load", "decoding source registry").Wrap(err)
	}
	cfg.Registry = reg

	return cfg, nil
}

// applyDefaults fills in every ambient key the configuration file left
// unset, mirroring the teacher's applyDefaults.
func applyDefaults(cfg *Config) {
	if cfg.Flight.Host == "" {
		cfg.Flight.Host = "0.0.0.0"
	}
	if cfg.Flight.Port == 0 {
		cfg.Flight.Port = 8081
	}
	if cfg.Flight.Authentication == "" {
		cfg.Flight.Authentication = "basic"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "/var/lib/kukur"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Host == "" {
		cfg.Metrics.Host = cfg.Flight.Host
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyEnvironmentOverrides lets deployment tooling override the ambient
// keys without editing the file, the way the teacher's SSW_* variables do
// for its own config.
func applyEnvironmentOverrides(cfg *Config) {
	cfg.Flight.Host = getEnvString("KUKUR_FLIGHT_HOST", cfg.Flight.Host)
	cfg.Flight.Port = getEnvInt("KUKUR_FLIGHT_PORT", cfg.Flight.Port)
	cfg.Flight.Authentication = getEnvString("KUKUR_FLIGHT_AUTHENTICATION", cfg.Flight.Authentication)
	cfg.DataDir = getEnvString("KUKUR_DATA_DIR", cfg.DataDir)
	cfg.Logging.Level = getEnvString("KUKUR_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvString("KUKUR_LOG_FORMAT", cfg.Logging.Format)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
