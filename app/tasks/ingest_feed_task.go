package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
)

var _ TaskInterface = (*IngestFeedTask)(nil)

// IngestFeedTask drives one feed through fetch, parse, normalize, dedup and
// store. Entry-level problems are counted in the report; only fetch and
// parse failures are returned from Execute.
type IngestFeedTask struct {
	Task
	Entry            feed.Entry
	fetcher          Fetcher
	parser           *feed.Parser
	normalizer       *feed.Normalizer
	filterer         *feed.Filterer
	contentExtractor *feed.ContentExtractor
	articleRepo      database.ArticleRepository
	timeout          time.Duration
	report           FeedReport
}

func NewIngestFeedTask(entry feed.Entry, fetcher Fetcher, parser *feed.Parser, normalizer *feed.Normalizer,
	filterer *feed.Filterer, contentExtractor *feed.ContentExtractor, articleRepo database.ArticleRepository,
	defaultTimeout time.Duration) *IngestFeedTask {
	timeout := entry.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &IngestFeedTask{
		Task:             NewTask(TaskTypeIngestFeed, feedName(entry)),
		Entry:            entry,
		fetcher:          fetcher,
		parser:           parser,
		normalizer:       normalizer,
		filterer:         filterer,
		contentExtractor: contentExtractor,
		articleRepo:      articleRepo,
		timeout:          timeout,
		report: FeedReport{
			Source:   entry.Source,
			Category: entry.Category,
			URL:      entry.URL,
		},
	}
}

// Report returns the counters gathered so far.
func (t *IngestFeedTask) Report() FeedReport {
	report := t.report
	report.Duration = t.GetDuration()
	return report
}

func (t *IngestFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := t.fetcher.Run(ctx, t.Entry.URL, t.timeout)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	origin := feed.Origin{
		Source:   t.Entry.Source,
		Category: t.Entry.Category,
		FeedURL:  t.Entry.URL,
		SiteLink: metadata.Link,
	}

	// Once fetched, a feed is processed to the end even if the run is cancelled.
	storeCtx := context.WithoutCancel(ctx)

	for _, item := range items {
		t.report.Fetched++

		article, err := t.normalizer.Run(item, origin)
		if err == nil {
			err = t.filterer.Run(article, t.Entry.Filters)
		}
		if err != nil {
			t.report.Skipped++
			slog.Debug("Entry skipped", "feed", t.FeedName, "link", item.Link, "reason", err)
			continue
		}

		exists, err := t.articleRepo.Exists(storeCtx, article.Link)
		if err != nil {
			// The unique constraint still decides on insert.
			slog.Warn("Duplicate check failed", "feed", t.FeedName, "link", article.Link, "error", err)
		} else if exists {
			t.report.Skipped++
			continue
		}

		if t.Entry.ExtractSummary && article.Summary == "" {
			t.extractSummary(ctx, &article)
		}

		_, err = t.articleRepo.Insert(storeCtx, toStoredArticle(article))
		switch {
		case err == nil:
			t.report.Saved++
		case errors.Is(err, database.ErrDuplicateKey):
			t.report.Skipped++
		default:
			t.report.Errored++
			slog.Error("Failed to store article", "feed", t.FeedName, "link", article.Link, "error", err)
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"fetched", t.report.Fetched,
		"saved", t.report.Saved,
		"skipped", t.report.Skipped,
		"errored", t.report.Errored)

	return nil
}

// extractSummary fills an empty summary from the article page. Failures
// leave the summary empty.
func (t *IngestFeedTask) extractSummary(ctx context.Context, article *feed.Article) {
	if t.contentExtractor == nil {
		return
	}

	data, err := t.fetcher.Run(ctx, article.Link, t.timeout)
	if err != nil {
		slog.Debug("Failed to fetch article page", "feed", t.FeedName, "url", article.Link, "error", err)
		return
	}

	summary, err := t.contentExtractor.Run(data, article.Link)
	if err != nil {
		slog.Debug("Failed to extract summary", "feed", t.FeedName, "url", article.Link, "error", err)
		return
	}

	article.Summary = summary
}

func toStoredArticle(article feed.Article) database.Article {
	return database.Article{
		Title:       article.Title,
		Summary:     article.Summary,
		Link:        article.Link,
		Source:      article.Source,
		Category:    article.Category,
		PublishedAt: article.PublishedAt,
		ImageURL:    article.ImageURL,
		Author:      article.Author,
		Tags:        article.Tags,
		OriginFeed:  article.OriginFeed,
	}
}

func feedName(entry feed.Entry) string {
	return entry.Source + "/" + entry.Category
}
