package database

import (
	"context"
)

type ArticleRepository interface {
	Insert(ctx context.Context, article Article) (string, error)
	Exists(ctx context.Context, link string) (bool, error)
	Query(ctx context.Context, filter ArticleFilter) ([]Article, error)
	Count(ctx context.Context, filter ArticleFilter) (int, error)
	FindByID(ctx context.Context, id string) (*Article, error)
	Stats(ctx context.Context) (*Stats, error)
}

type FeedRepository interface {
	UpsertFeed(ctx context.Context, source, category, url string) error
	RecordFetch(ctx context.Context, source, category string, outcome FetchOutcome) error
	ListFeeds(ctx context.Context) ([]FeedStatus, error)
	GetFeedCount(ctx context.Context) (int, error)
}
