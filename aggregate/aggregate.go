// Package aggregate performs the final stage of a run: it normalizes and
// deduplicates the collected knowledge lines and writes them to the
// output file.
package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maharaniweddings/knowledgebuild/source"
)

// Lines whitespace-normalizes each line, drops empties, and removes exact
// duplicates while preserving first-occurrence order. Running it on its
// own output yields an identical list.
func Lines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		cleaned := source.CleanText(line)
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}

	return out
}

// Write persists the lines as newline-joined text at path, overwriting
// any prior content, and returns the number of lines written. The parent
// directory is created if needed; failure here is the one fatal error
// class of a run.
func Write(path string, lines []string) (int, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	data := strings.Join(lines, "\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return 0, fmt.Errorf("write output file: %w", err)
	}

	return len(lines), nil
}
