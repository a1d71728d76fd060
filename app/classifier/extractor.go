package classifier

import (
	"log/slog"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Extractor strips HTML from document bodies. Acquisition collaborators hand
// over whatever their fetch produced; research portals frequently deliver full
// HTML pages rather than plain text.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

var htmlMarkup = regexp.MustCompile(`(?i)<\s*(html|body|div|p|article|span|br)\b`)

// Run returns plain text for the document body. Non-HTML input passes through
// unchanged; extraction failures fall back to a tag-stripped version rather
// than losing the document.
func (e *Extractor) Run(raw string) string {
	if !htmlMarkup.MatchString(raw) {
		return raw
	}

	article, err := readability.FromReader(strings.NewReader(raw), nil)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		slog.Debug("Readability extraction failed, stripping tags", "error", err)
		return stripTags(raw)
	}

	slog.Debug("Content extracted from HTML", "title", article.Title, "content_length", len(article.TextContent))

	return article.TextContent
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(raw string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(raw, " "))
}
