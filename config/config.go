// Package config provides configuration loading for knowledgebuild:
// runtime settings, environment credentials, and the declarative source
// list.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Extraction mode names for the direct-fetch HTML path.
const (
	// ExtractText strips script/style/noscript and joins visible text.
	ExtractText = "text"
	// ExtractMarkdown converts the page to GitHub-flavored markdown.
	ExtractMarkdown = "markdown"
	// ExtractArticle extracts main article content, falling back to text.
	ExtractArticle = "article"
)

// Config represents the complete runtime configuration. It is constructed
// once at process start and passed into each fetcher; there is no
// process-wide mutable state.
type Config struct {
	// SourcesPath is the path to the declarative source list.
	SourcesPath string

	// OutputPath is where the knowledge file is written. Fully
	// overwritten on each run.
	OutputPath string

	// ChunkSize is the maximum chunk window in characters.
	ChunkSize int

	// UserAgent is sent on direct HTTP fetches.
	UserAgent string

	// ExtractMode selects the HTML extraction strategy for direct
	// fetches: text (default), markdown, or article.
	ExtractMode string

	// FetchTimeout bounds a direct HTTP fetch.
	FetchTimeout time.Duration

	// ScrapeTimeout bounds a managed-scrape service call.
	ScrapeTimeout time.Duration

	// ActorTimeout bounds a synchronous actor run.
	ActorTimeout time.Duration

	// Credentials holds environment-provided keys and endpoints.
	Credentials Credentials
}

// Credentials holds the environment-provided credentials and endpoints
// for the optional third-party integrations.
type Credentials struct {
	// FirecrawlAPIKey enables the managed scrape service when set.
	FirecrawlAPIKey string `envconfig:"FIRECRAWL_API_KEY"`

	// FirecrawlBase is the scrape service base URL.
	FirecrawlBase string `envconfig:"FIRECRAWL_BASE" default:"https://api.firecrawl.dev"`

	// ApifyToken enables the actor platform when set.
	ApifyToken string `envconfig:"APIFY_TOKEN"`

	// ApifyBase is the actor platform base URL.
	ApifyBase string `envconfig:"APIFY_BASE" default:"https://api.apify.com"`

	// Debug enables debug-level logging.
	Debug bool `envconfig:"MJE_DEBUG"`
}

// FirecrawlEnabled reports whether the managed scrape service may be used.
func (c Credentials) FirecrawlEnabled() bool {
	return c.FirecrawlAPIKey != ""
}

// ApifyEnabled reports whether the actor platform may be used.
func (c Credentials) ApifyEnabled() bool {
	return c.ApifyToken != ""
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SourcesPath:   "sources.yaml",
		OutputPath:    "dist/heygen_knowledge.txt",
		ChunkSize:     800,
		UserAgent:     "MaharaniBot/1.0 (+https://www.maharaniweddings.com)",
		ExtractMode:   ExtractText,
		FetchTimeout:  30 * time.Second,
		ScrapeTimeout: 60 * time.Second,
		ActorTimeout:  120 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SourcesPath == "" {
		return fmt.Errorf("sources path is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	switch c.ExtractMode {
	case ExtractText, ExtractMarkdown, ExtractArticle:
	default:
		return fmt.Errorf("unknown extract mode %q", c.ExtractMode)
	}
	return nil
}

// Load builds the runtime configuration: defaults, then environment
// credentials. A .env file in the working directory is loaded
// best-effort first; env vars set in the shell take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := DefaultConfig()
	if err := envconfig.Process("", &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	return cfg, nil
}
