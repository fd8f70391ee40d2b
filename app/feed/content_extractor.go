package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/text/unicode/norm"
)

// ContentExtractor derives a plain-text summary from an article page. It is
// used for feeds whose entries carry no description.
type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

func (e *ContentExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	var base *url.URL
	if pageURL != "" {
		if parsed, err := url.Parse(pageURL); err == nil {
			base = parsed
		}
	}

	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := article.Excerpt
	if strings.TrimSpace(text) == "" {
		text = article.TextContent
	}
	summary := Truncate(norm.NFC.String(strings.Join(strings.Fields(text), " ")), SummaryLimit)

	if summary == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Summary extracted successfully",
		"url", pageURL,
		"title", article.Title,
		"summary_length", len(summary))

	return summary, nil
}
