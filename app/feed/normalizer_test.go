package feed

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrigin = Origin{
	Source:   "Example Times",
	Category: "Technology",
	FeedURL:  "https://example.com/feeds/tech.xml",
	SiteLink: "https://example.com/tech/",
}

func TestNormalizer_ValidEntry(t *testing.T) {
	published := time.Date(2024, 1, 2, 15, 4, 5, 0, time.FixedZone("IST", 5*3600+1800))
	item := &gofeed.Item{
		Title:           "  Chip maker posts record quarter  ",
		Description:     "Revenue up",
		Link:            " https://example.com/a/1 ",
		PublishedParsed: &published,
		Categories:      []string{"Business", "  ", " Chips "},
		Authors:         []*gofeed.Person{{Name: "Jane Reporter"}},
	}

	article, err := NewNormalizer().Run(item, testOrigin)
	require.NoError(t, err)

	assert.Equal(t, "Chip maker posts record quarter", article.Title)
	assert.Equal(t, "Revenue up", article.Summary)
	assert.Equal(t, "https://example.com/a/1", article.Link)
	assert.Equal(t, "Example Times", article.Source)
	assert.Equal(t, "Technology", article.Category)
	assert.Equal(t, testOrigin.FeedURL, article.OriginFeed)
	assert.Equal(t, "Jane Reporter", article.Author)
	assert.Equal(t, []string{"Business", "Chips"}, article.Tags)
	require.NotNil(t, article.PublishedAt)
	assert.True(t, article.PublishedAt.Equal(published))
	assert.Equal(t, time.UTC, article.PublishedAt.Location())
}

func TestNormalizer_MalformedEntriesAreSkipped(t *testing.T) {
	tests := []struct {
		name   string
		item   *gofeed.Item
		reason error
	}{
		{"nil entry", nil, ErrMissingRequiredField},
		{"missing title", &gofeed.Item{Link: "https://example.com/a"}, ErrMissingRequiredField},
		{"blank title", &gofeed.Item{Title: "   ", Link: "https://example.com/a"}, ErrMissingRequiredField},
		{"missing link", &gofeed.Item{Title: "Hello"}, ErrMissingRequiredField},
		{"blank link", &gofeed.Item{Title: "Hello", Link: "\n\t"}, ErrMissingRequiredField},
		{"non-http link", &gofeed.Item{Title: "Hello", Link: "mailto:editor@example.com"}, ErrInvalidLink},
		{"javascript link", &gofeed.Item{Title: "Hello", Link: "javascript:alert(1)"}, ErrInvalidLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, err = NewNormalizer().Run(tt.item, testOrigin)
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.reason), "got %v", err)
			assert.True(t, IsSkip(err))
		})
	}
}

func TestNormalizer_UnparseableDateIsNil(t *testing.T) {
	item := &gofeed.Item{
		Title:     "Undated",
		Link:      "https://example.com/undated",
		Published: "sometime last week",
	}

	article, err := NewNormalizer().Run(item, testOrigin)
	require.NoError(t, err)
	assert.Nil(t, article.PublishedAt)
}

func TestNormalizer_SummaryTruncation(t *testing.T) {
	item := &gofeed.Item{
		Title:       "Long",
		Link:        "https://example.com/long",
		Description: strings.Repeat("a", 600),
	}

	article, err := NewNormalizer().Run(item, testOrigin)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 500), article.Summary)
}

func TestNormalizer_SummaryTruncationKeepsRawPrefix(t *testing.T) {
	raw := "\n  " + strings.Repeat("b", 598)
	item := &gofeed.Item{
		Title:       "Padded",
		Link:        "https://example.com/padded",
		Description: raw,
	}

	article, err := NewNormalizer().Run(item, testOrigin)
	require.NoError(t, err)
	assert.Equal(t, string([]rune(raw)[:500]), article.Summary)
}

func TestNormalizer_WhitespaceSummaryIsEmpty(t *testing.T) {
	item := &gofeed.Item{
		Title:       "Blank",
		Link:        "https://example.com/blank",
		Description: " \n\t ",
		Content:     "   ",
	}

	article, err := NewNormalizer().Run(item, testOrigin)
	require.NoError(t, err)
	assert.Empty(t, article.Summary)
}

func TestNormalizer_SummaryFallsBackToContent(t *testing.T) {
	item := &gofeed.Item{
		Title:   "Content only",
		Link:    "https://example.com/content",
		Content: "Body text",
	}

	article, err := NewNormalizer().Run(item, testOrigin)
	require.NoError(t, err)
	assert.Equal(t, "Body text", article.Summary)
}

func TestNormalizer_RelativeLinkResolution(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		origin   Origin
		expected string
	}{
		{"relative to site link", "story/42", testOrigin, "https://example.com/tech/story/42"},
		{"root relative", "/story/42", testOrigin, "https://example.com/story/42"},
		{"falls back to feed url", "/story/42", Origin{FeedURL: "https://news.example.org/rss"}, "https://news.example.org/story/42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article, err := NewNormalizer().Run(&gofeed.Item{Title: "T", Link: tt.link}, tt.origin)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, article.Link)
		})
	}

	_, err := NewNormalizer().Run(&gofeed.Item{Title: "T", Link: "/story"}, Origin{})
	assert.True(t, errors.Is(err, ErrInvalidLink))
}

func TestNormalizer_ImageExtraction(t *testing.T) {
	media := func(name, url string) ext.Extension {
		return ext.Extension{Name: name, Attrs: map[string]string{"url": url}}
	}

	tests := []struct {
		name       string
		extensions ext.Extensions
		expected   string
	}{
		{"no extensions", nil, ""},
		{
			"media content",
			ext.Extensions{"media": {"content": {media("content", "https://img.example.com/c.jpg")}}},
			"https://img.example.com/c.jpg",
		},
		{
			"thumbnail fallback",
			ext.Extensions{"media": {"thumbnail": {media("thumbnail", "https://img.example.com/t.jpg")}}},
			"https://img.example.com/t.jpg",
		},
		{
			"content wins over thumbnail",
			ext.Extensions{"media": {
				"thumbnail": {media("thumbnail", "https://img.example.com/t.jpg")},
				"content":   {media("content", "https://img.example.com/c.jpg")},
			}},
			"https://img.example.com/c.jpg",
		},
		{
			"inside media group",
			ext.Extensions{"media": {"group": {{
				Name:     "group",
				Children: map[string][]ext.Extension{"content": {media("content", "https://img.example.com/g.jpg")}},
			}}}},
			"https://img.example.com/g.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &gofeed.Item{Title: "T", Link: "https://example.com/x", Extensions: tt.extensions}
			article, err := NewNormalizer().Run(item, testOrigin)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, article.ImageURL)
		})
	}
}

func TestNormalizer_Defaults(t *testing.T) {
	article, err := NewNormalizer().Run(&gofeed.Item{Title: "T", Link: "https://example.com/x"}, testOrigin)
	require.NoError(t, err)

	assert.Empty(t, article.Summary)
	assert.Empty(t, article.ImageURL)
	assert.Empty(t, article.Author)
	assert.NotNil(t, article.Tags)
	assert.Empty(t, article.Tags)
	assert.Nil(t, article.PublishedAt)
}

func TestNormalizer_AuthorFallbacks(t *testing.T) {
	item := &gofeed.Item{
		Title:  "T",
		Link:   "https://example.com/x",
		Author: &gofeed.Person{Email: "desk@example.com"},
	}

	article, err := NewNormalizer().Run(item, testOrigin)
	require.NoError(t, err)
	assert.Equal(t, "desk@example.com", article.Author)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "नम", Truncate("नमस्ते", 2))
}
