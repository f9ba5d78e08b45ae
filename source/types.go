// Package source provides the domain types shared across the knowledge
// build pipeline: fetched records, knowledge lines, and text normalization.
package source

import (
	"fmt"
	"strings"
)

// OriginKind identifies where a piece of content came from.
type OriginKind string

const (
	// OriginWeb marks content fetched from a web URL.
	OriginWeb OriginKind = "WEB"

	// OriginApify marks content produced by an actor run.
	OriginApify OriginKind = "APIFY"
)

// FetchedRecord is the transient unit a fetcher hands to the normalizer.
// It never outlives a single run.
type FetchedRecord struct {
	// Origin discriminates web and actor content.
	Origin OriginKind

	// SourceID identifies the originating URL or actor result.
	SourceID string

	// Text is the raw extracted text before chunking.
	Text string
}

// KnowledgeLine is the atomic unit written to the output artifact.
type KnowledgeLine struct {
	// Origin discriminates web and actor content.
	Origin OriginKind

	// SourceID labels the line with its originating URL or actor result.
	SourceID string

	// Chunk is a normalized text window. Its length never exceeds the
	// configured chunk size.
	Chunk string
}

// Format renders the line in the output wire format:
// "SRC:WEB {url} | {chunk}" or "SRC:APIFY {source} | {chunk}".
func (l KnowledgeLine) Format() string {
	return fmt.Sprintf("SRC:%s %s | %s", l.Origin, l.SourceID, l.Chunk)
}

// CleanText collapses all whitespace runs to single spaces and trims the
// result. Applying it twice is a no-op.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
