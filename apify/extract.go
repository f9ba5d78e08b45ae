package apify

import (
	"sort"
	"strings"

	"github.com/maharaniweddings/knowledgebuild/source"
)

// textFields is the priority list of record fields scanned for knowledge
// text.
var textFields = []string{"caption", "text", "summary", "title", "description", "alt", "content"}

// sourceFields is the priority list of record fields used as the source
// identifier.
var sourceFields = []string{"url", "link", "permalink"}

// minFallbackLen is the minimum length for an unrecognized string field
// to count as text when no priority field is present.
const minFallbackLen = 20

// ExtractText collects knowledge text from one dataset record. It scans
// the priority fields first; if none carry text it falls back to every
// string value longer than minFallbackLen characters. Candidates are
// joined with a single space and whitespace-normalized. An empty result
// means the record carries no usable text.
func ExtractText(record map[string]any) string {
	var candidates []string

	for _, key := range textFields {
		if val, ok := record[key].(string); ok && strings.TrimSpace(val) != "" {
			candidates = append(candidates, strings.TrimSpace(val))
		}
	}

	if len(candidates) == 0 {
		// Sort keys so the fallback is deterministic across runs.
		keys := make([]string, 0, len(record))
		for key := range record {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if s, ok := record[key].(string); ok && len(s) > minFallbackLen {
				candidates = append(candidates, s)
			}
		}
	}

	if len(candidates) == 0 {
		return ""
	}
	return source.CleanText(strings.Join(candidates, " "))
}

// SourceID returns the record's source identifier: the first present of
// url, link, permalink, else the actor identifier itself.
func SourceID(record map[string]any, actor string) string {
	for _, key := range sourceFields {
		if val, ok := record[key].(string); ok && val != "" {
			return val
		}
	}
	return actor
}
