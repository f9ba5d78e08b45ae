package config

import (
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// SourceConfig is the declarative source list, loaded once per run and
// immutable thereafter.
type SourceConfig struct {
	// Web is the ordered list of URLs to fetch.
	Web []string `yaml:"web"`

	// Apify is the ordered list of actor descriptors to run.
	Apify []ActorConfig `yaml:"apify"`
}

// ActorConfig describes one parameterized actor run.
type ActorConfig struct {
	// Actor is the actor identifier, e.g. "apify/instagram-scraper".
	Actor string `yaml:"actor"`

	// Input is the actor input object. String values may contain
	// ${ENV:NAME} placeholders, resolved at load time.
	Input map[string]any `yaml:"input"`
}

// envPlaceholderRe matches ${ENV:NAME} placeholder tokens.
var envPlaceholderRe = regexp.MustCompile(`\$\{ENV:([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadSources reads the source list from path. An absent or unparseable
// document degrades to an empty configuration with a warning; the run
// never fails on it.
func LoadSources(path string, logger *slog.Logger) *SourceConfig {
	if logger == nil {
		logger = slog.Default()
	}

	empty := &SourceConfig{Web: []string{}, Apify: []ActorConfig{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("sources file not found, continuing with empty config", "path", path)
		} else {
			logger.Warn("failed to read sources file, continuing with empty config", "path", path, "error", err)
		}
		return empty
	}

	var cfg SourceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Warn("failed to parse sources file, continuing with empty config", "path", path, "error", err)
		return empty
	}

	if cfg.Web == nil {
		cfg.Web = []string{}
	}
	if cfg.Apify == nil {
		cfg.Apify = []ActorConfig{}
	}

	return &cfg
}

// ResolveEnvPlaceholders walks maps, slices, and strings, substituting
// ${ENV:NAME} tokens with the named environment variable. A missing
// variable resolves to the empty string and emits a warning naming the
// placeholder; the run continues.
func ResolveEnvPlaceholders(v any, logger *slog.Logger) any {
	if logger == nil {
		logger = slog.Default()
	}

	switch val := v.(type) {
	case map[string]any:
		resolved := make(map[string]any, len(val))
		for k, inner := range val {
			resolved[k] = ResolveEnvPlaceholders(inner, logger)
		}
		return resolved
	case []any:
		resolved := make([]any, len(val))
		for i, inner := range val {
			resolved[i] = ResolveEnvPlaceholders(inner, logger)
		}
		return resolved
	case string:
		return envPlaceholderRe.ReplaceAllStringFunc(val, func(match string) string {
			name := envPlaceholderRe.FindStringSubmatch(match)[1]
			value, ok := os.LookupEnv(name)
			if !ok || value == "" {
				logger.Warn("environment variable missing for placeholder", "variable", name)
			}
			return value
		})
	default:
		return v
	}
}

// ResolveActorInput returns a copy of the actor input with all
// placeholders resolved. A nil input yields an empty map.
func ResolveActorInput(a ActorConfig, logger *slog.Logger) map[string]any {
	if a.Input == nil {
		return map[string]any{}
	}
	resolved, _ := ResolveEnvPlaceholders(a.Input, logger).(map[string]any)
	return resolved
}
