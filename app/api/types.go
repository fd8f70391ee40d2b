package api

import (
	"sync/atomic"
	"time"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
	"github.com/lysyi3m/news-harvest/app/tasks"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	rssItemLimit    = 50
)

type GeneratorInterface interface {
	Run(channel feed.Channel, articles []database.Article) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	articleRepo database.ArticleRepository
	feedRepo    database.FeedRepository
	registry    *feed.Registry
	runner      tasks.RunnerInterface
	generator   GeneratorInterface
	ingesting   atomic.Bool
}

type ArticleResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Link        string     `json:"link"`
	Source      string     `json:"source"`
	Category    string     `json:"category"`
	PublishedAt *time.Time `json:"published"`
	ImageURL    string     `json:"image_url"`
	Author      string     `json:"author"`
	Tags        []string   `json:"tags"`
	OriginFeed  string     `json:"origin_feed"`
	IngestedAt  time.Time  `json:"ingested_at"`
}

type ArticlePage struct {
	Count      int               `json:"count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	Results    []ArticleResponse `json:"results"`
}

type FeedResponse struct {
	Source         string     `json:"source"`
	Category       string     `json:"category"`
	URL            string     `json:"url"`
	Timeout        string     `json:"timeout,omitempty"`
	ExtractSummary bool       `json:"extract_summary"`
	Filters        int        `json:"filters"`
	LastFetchedAt  *time.Time `json:"last_fetched_at"`
	LastSuccessAt  *time.Time `json:"last_success_at"`
	LastError      string     `json:"last_error,omitempty"`
	LastFetched    int        `json:"last_fetched"`
	LastSaved      int        `json:"last_saved"`
	LastSkipped    int        `json:"last_skipped"`
	LastErrored    int        `json:"last_errored"`
}

type IngestResponse struct {
	Report tasks.Report `json:"report"`
	Totals tasks.Totals `json:"totals"`
}

func toArticleResponse(article database.Article) ArticleResponse {
	tags := article.Tags
	if tags == nil {
		tags = []string{}
	}

	return ArticleResponse{
		ID:          article.ID,
		Title:       article.Title,
		Summary:     article.Summary,
		Link:        article.Link,
		Source:      article.Source,
		Category:    article.Category,
		PublishedAt: article.PublishedAt,
		ImageURL:    article.ImageURL,
		Author:      article.Author,
		Tags:        tags,
		OriginFeed:  article.OriginFeed,
		IngestedAt:  article.IngestedAt,
	}
}
