package webfetch

import (
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/maharaniweddings/knowledgebuild/source"
)

// Mode selects the HTML extraction strategy.
type Mode string

const (
	// ModeText strips script/style/noscript and joins visible text.
	// This is the default.
	ModeText Mode = "text"

	// ModeMarkdown converts the page to GitHub-flavored markdown.
	ModeMarkdown Mode = "markdown"

	// ModeArticle extracts the main article content, falling back to
	// ModeText when the page yields nothing.
	ModeArticle Mode = "article"
)

// skippedTags are subtrees never rendered as visible text.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
}

// Extractor turns fetched HTML into normalized plain text.
type Extractor struct {
	mode      Mode
	converter *md.Converter
}

// NewExtractor creates an extractor for the given mode. The markdown
// converter is built eagerly so every page reuses it.
func NewExtractor(mode Mode) (*Extractor, error) {
	switch mode {
	case ModeText, ModeMarkdown, ModeArticle:
	case "":
		mode = ModeText
	default:
		return nil, fmt.Errorf("unknown extract mode %q", mode)
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Extractor{
		mode:      mode,
		converter: converter,
	}, nil
}

// Extract produces whitespace-normalized text from an HTML document.
// pageURL labels the document for article extraction; it may be empty.
func (e *Extractor) Extract(body []byte, pageURL string) (string, error) {
	switch e.mode {
	case ModeMarkdown:
		return e.extractMarkdown(body)
	case ModeArticle:
		if text := extractArticle(body, pageURL); text != "" {
			return text, nil
		}
		return extractVisibleText(body)
	default:
		return extractVisibleText(body)
	}
}

// extractVisibleText parses HTML, drops script/style/noscript subtrees,
// and joins the remaining text nodes with spaces.
func extractVisibleText(body []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return source.CleanText(sb.String()), nil
}

// extractMarkdown converts the document to GitHub-flavored markdown and
// normalizes the result to a single line of text.
func (e *Extractor) extractMarkdown(body []byte) (string, error) {
	markdown, err := e.converter.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return source.CleanText(markdown), nil
}

// extractArticle pulls main article content with readability heuristics.
// Returns "" when the page has no identifiable article.
func extractArticle(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return ""
	}
	return source.CleanText(article.TextContent)
}
