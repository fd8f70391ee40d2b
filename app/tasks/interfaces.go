package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/news-harvest/app/feed"
)

// RunnerInterface is what the HTTP layer and main need from the ingestion
// runner.
//
//	runner := NewRunner(registry, articleRepo, feedRepo, fetcher, metrics, workerCount, timeout)
//	report := runner.IngestAll(ctx)
type RunnerInterface interface {
	IngestAll(ctx context.Context) Report
	IngestFeed(ctx context.Context, entry feed.Entry) FeedReport
}

// Fetcher downloads one document under a timeout.
type Fetcher interface {
	Run(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

var _ Fetcher = (*feed.Fetcher)(nil)
