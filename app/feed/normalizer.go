package feed

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"
)

// SummaryLimit caps stored summaries, in characters.
const SummaryLimit = 500

// Normalizer turns raw feed entries into canonical articles. Each field is
// extracted independently with its own default; only title and link can
// make an entry unusable.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Run(item *gofeed.Item, origin Origin) (Article, error) {
	if item == nil {
		return Article{}, &SkipError{Field: "entry", Reason: ErrMissingRequiredField}
	}

	title := norm.NFC.String(strings.TrimSpace(item.Title))
	if title == "" {
		return Article{}, &SkipError{Field: "title", Reason: ErrMissingRequiredField}
	}

	rawLink := strings.TrimSpace(item.Link)
	if rawLink == "" {
		return Article{}, &SkipError{Field: "link", Reason: ErrMissingRequiredField}
	}

	link, ok := resolveLink(rawLink, origin.SiteLink, origin.FeedURL)
	if !ok {
		return Article{}, &SkipError{Field: "link", Reason: ErrInvalidLink, Detail: rawLink}
	}

	return Article{
		Title:       title,
		Summary:     n.extractSummary(item),
		Link:        link,
		Source:      origin.Source,
		Category:    origin.Category,
		PublishedAt: n.extractPublished(item),
		ImageURL:    n.extractImage(item),
		Author:      n.extractAuthor(item),
		Tags:        n.extractTags(item),
		OriginFeed:  origin.FeedURL,
	}, nil
}

// extractSummary prefers the entry description and falls back to its content.
// The stored summary is the first SummaryLimit characters of the raw text.
// Default: empty.
func (n *Normalizer) extractSummary(item *gofeed.Item) string {
	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Content
	}
	if strings.TrimSpace(summary) == "" {
		return ""
	}
	return norm.NFC.String(Truncate(summary, SummaryLimit))
}

// extractPublished uses the date gofeed already parsed from pubDate/published.
// Default: nil.
func (n *Normalizer) extractPublished(item *gofeed.Item) *time.Time {
	if item.PublishedParsed == nil || item.PublishedParsed.IsZero() {
		return nil
	}
	published := item.PublishedParsed.UTC()
	return &published
}

// extractImage looks at media:content, then media:thumbnail, either at the
// top level or inside media:group. Default: empty.
func (n *Normalizer) extractImage(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}

	groups := media["group"]
	for _, name := range []string{"content", "thumbnail"} {
		if u := firstMediaURL(media[name]); u != "" {
			return u
		}
		for _, group := range groups {
			if u := firstMediaURL(group.Children[name]); u != "" {
				return u
			}
		}
	}

	return ""
}

// extractTags flattens entry categories in order. Default: empty slice.
func (n *Normalizer) extractTags(item *gofeed.Item) []string {
	return lo.FilterMap(item.Categories, func(category string, _ int) (string, bool) {
		category = strings.TrimSpace(category)
		return category, category != ""
	})
}

// extractAuthor takes the first named author. Default: empty.
func (n *Normalizer) extractAuthor(item *gofeed.Item) string {
	authors := item.Authors
	if len(authors) == 0 && item.Author != nil {
		authors = []*gofeed.Person{item.Author}
	}

	for _, author := range authors {
		if author == nil {
			continue
		}
		if name := strings.TrimSpace(author.Name); name != "" {
			return name
		}
		if email := strings.TrimSpace(author.Email); email != "" {
			return email
		}
	}

	return ""
}

func firstMediaURL(extensions []ext.Extension) string {
	for _, e := range extensions {
		if u := strings.TrimSpace(e.Attrs["url"]); u != "" {
			return u
		}
	}
	return ""
}

// resolveLink returns link as an absolute http(s) URL, resolving it against
// the given bases in order when it is relative.
func resolveLink(link string, bases ...string) (string, bool) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	if isAbsoluteHTTP(ref) {
		return link, true
	}
	if ref.Scheme != "" {
		return "", false
	}

	for _, base := range bases {
		baseURL, err := url.Parse(strings.TrimSpace(base))
		if err != nil || !isAbsoluteHTTP(baseURL) {
			continue
		}
		resolved := baseURL.ResolveReference(ref)
		if !isAbsoluteHTTP(resolved) {
			return "", false
		}
		return resolved.String(), true
	}

	return "", false
}

func isAbsoluteHTTP(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Truncate cuts s to at most limit characters without splitting a rune.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
