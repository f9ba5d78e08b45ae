// Package chunker splits normalized text into fixed-size windows for the
// knowledge output file.
package chunker

import (
	"fmt"
)

// DefaultSize is the default chunk window in characters (runes).
const DefaultSize = 800

// Config holds chunking configuration.
type Config struct {
	// Size is the maximum chunk size in characters.
	Size int
}

// DefaultConfig returns the standard chunking configuration.
func DefaultConfig() Config {
	return Config{Size: DefaultSize}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("Size must be positive, got %d", c.Size)
	}
	return nil
}

// Chunker splits text into non-overlapping fixed windows, left to right.
// Concatenating the windows in order reconstructs the input exactly.
type Chunker struct {
	config Config
}

// New creates a new Chunker with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Chunker, error) {
	if cfg.Size == 0 {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: cfg}, nil
}

// MustNew creates a new Chunker, panicking on invalid config.
// Use for known-good configurations.
func MustNew(cfg Config) *Chunker {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// NewDefault creates a Chunker with default configuration.
func NewDefault() *Chunker {
	return MustNew(DefaultConfig())
}

// Size returns the configured window size.
func (c *Chunker) Size() int {
	return c.config.Size
}

// Split cuts text into windows of at most Size runes. Empty input yields
// no chunks. Windows are measured in runes so multibyte sequences are
// never split.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	size := c.config.Size

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}

	return chunks
}
