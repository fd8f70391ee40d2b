package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
	"github.com/lysyi3m/news-harvest/app/metrics"
)

var _ RunnerInterface = (*Runner)(nil)

// Runner executes one IngestFeedTask per registry entry on a bounded pool
// of workers.
type Runner struct {
	registry         *feed.Registry
	articleRepo      database.ArticleRepository
	feedRepo         database.FeedRepository
	fetcher          Fetcher
	parser           *feed.Parser
	normalizer       *feed.Normalizer
	filterer         *feed.Filterer
	contentExtractor *feed.ContentExtractor
	metrics          *metrics.Metrics
	workerCount      int
	timeout          time.Duration
}

func NewRunner(registry *feed.Registry, articleRepo database.ArticleRepository, feedRepo database.FeedRepository,
	fetcher Fetcher, m *metrics.Metrics, workerCount int, timeout time.Duration) *Runner {
	if workerCount <= 0 {
		workerCount = 1
	}
	if timeout <= 0 {
		timeout = feed.DefaultFetchTimeout
	}

	return &Runner{
		registry:         registry,
		articleRepo:      articleRepo,
		feedRepo:         feedRepo,
		fetcher:          fetcher,
		parser:           feed.NewParser(),
		normalizer:       feed.NewNormalizer(),
		filterer:         feed.NewFilterer(),
		contentExtractor: feed.NewContentExtractor(),
		metrics:          m,
		workerCount:      workerCount,
		timeout:          timeout,
	}
}

// IngestAll runs every registry entry once. No single feed failure stops
// the run. When ctx is cancelled, feeds not yet started are reported as
// errored with the context error.
func (r *Runner) IngestAll(ctx context.Context) Report {
	startedAt := time.Now().UTC()
	entries := r.registry.ListFeeds()
	reports := make([]FeedReport, len(entries))
	started := make([]bool, len(entries))

	jobs := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < min(r.workerCount, len(entries)); i++ {
		wg.Add(1)
		go r.worker(ctx, i, entries, jobs, reports, &wg)
	}

dispatch:
	for i := range entries {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- i:
			started[i] = true
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i, entry := range entries {
		if !started[i] {
			reports[i] = FeedReport{
				Source:   entry.Source,
				Category: entry.Category,
				URL:      entry.URL,
				Errored:  1,
				Err:      context.Cause(ctx).Error(),
			}
		}
	}

	report := Report{
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Feeds:     reports,
	}

	totals := report.Totals()
	slog.Info("Ingestion run completed",
		"duration", report.Duration,
		"feeds", totals.Feeds,
		"failed_feeds", totals.FailedFeeds,
		"fetched", totals.Fetched,
		"saved", totals.Saved,
		"skipped", totals.Skipped,
		"errored", totals.Errored)

	r.metrics.ObserveRun(time.Now(), report.Duration)

	return report
}

// IngestFeed runs a single entry, outside the worker pool.
func (r *Runner) IngestFeed(ctx context.Context, entry feed.Entry) FeedReport {
	return r.executeTask(ctx, -1, entry)
}

func (r *Runner) worker(ctx context.Context, id int, entries []feed.Entry, jobs <-chan int, reports []FeedReport, wg *sync.WaitGroup) {
	defer wg.Done()

	for i := range jobs {
		reports[i] = r.executeTask(ctx, id, entries[i])
	}
}

func (r *Runner) executeTask(ctx context.Context, workerID int, entry feed.Entry) FeedReport {
	task := NewIngestFeedTask(entry, r.fetcher, r.parser, r.normalizer, r.filterer, r.contentExtractor, r.articleRepo, r.timeout)
	task.Start()

	bookkeepingCtx := context.WithoutCancel(ctx)
	if err := r.feedRepo.UpsertFeed(bookkeepingCtx, entry.Source, entry.Category, entry.URL); err != nil {
		slog.Warn("Failed to register feed", "feed", task.GetFeedName(), "error", err)
	}

	err := task.Execute(ctx)
	report := task.Report()

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "feed", task.GetFeedName(), "error", err)
		report.Fetched = 0
		report.Saved = 0
		report.Skipped = 0
		report.Errored = 1
		report.Err = err.Error()
	}

	r.metrics.ObserveFeed(entry.Source, entry.Category, report.Saved, report.Skipped, report.Errored, report.Failed(), report.Duration)

	outcome := database.FetchOutcome{
		FetchedAt: time.Now().UTC(),
		Fetched:   report.Fetched,
		Saved:     report.Saved,
		Skipped:   report.Skipped,
		Errored:   report.Errored,
		Err:       report.Err,
	}
	if err := r.feedRepo.RecordFetch(bookkeepingCtx, entry.Source, entry.Category, outcome); err != nil {
		slog.Warn("Failed to record feed status", "feed", task.GetFeedName(), "error", err)
	}

	return report
}
