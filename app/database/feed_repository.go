package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

var _ FeedRepository = (*FeedStatusStore)(nil)

// FeedStatusStore tracks registry entries and their last fetch outcome.
type FeedStatusStore struct {
	db *DB
}

func NewFeedStatusStore(db *DB) *FeedStatusStore {
	return &FeedStatusStore{db: db}
}

// UpsertFeed registers a (source, category) pair or refreshes its URL.
func (r *FeedStatusStore) UpsertFeed(ctx context.Context, source, category, url string) error {
	now := time.Now().UTC().UnixNano()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feeds (id, source, category, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, category) DO UPDATE SET
			url = excluded.url,
			updated_at = excluded.updated_at
	`, uuid.NewString(), source, category, url, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

// RecordFetch stores the outcome of one ingestion of a feed.
func (r *FeedStatusStore) RecordFetch(ctx context.Context, source, category string, outcome FetchOutcome) error {
	fetchedAt := outcome.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("feeds")
	ub.Set(
		ub.Assign("last_fetched_at", fetchedAt.UnixNano()),
		ub.Assign("last_error", outcome.Err),
		ub.Assign("last_fetched", outcome.Fetched),
		ub.Assign("last_saved", outcome.Saved),
		ub.Assign("last_skipped", outcome.Skipped),
		ub.Assign("last_errored", outcome.Errored),
		ub.Assign("updated_at", time.Now().UTC().UnixNano()),
	)
	if outcome.Err == "" {
		ub.SetMore(ub.Assign("last_success_at", fetchedAt.UnixNano()))
	}
	ub.Where(ub.Equal("source", source), ub.Equal("category", category))

	query, args := ub.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to record feed fetch: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("feed %s/%s is not registered", source, category)
	}

	return nil
}

func (r *FeedStatusStore) ListFeeds(ctx context.Context) ([]FeedStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, category, url, last_fetched_at, last_success_at, last_error,
		       last_fetched, last_saved, last_skipped, last_errored, created_at, updated_at
		FROM feeds
		ORDER BY source, category
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	feeds := []FeedStatus{}
	for rows.Next() {
		var feed FeedStatus
		var lastFetchedAt, lastSuccessAt sql.NullInt64
		var createdAt, updatedAt int64

		err := rows.Scan(
			&feed.ID, &feed.Source, &feed.Category, &feed.URL, &lastFetchedAt, &lastSuccessAt, &feed.LastError,
			&feed.LastFetched, &feed.LastSaved, &feed.LastSkipped, &feed.LastErrored, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}

		feed.LastFetchedAt = fromNullUnix(lastFetchedAt)
		feed.LastSuccessAt = fromNullUnix(lastSuccessAt)
		feed.CreatedAt = time.Unix(0, createdAt).UTC()
		feed.UpdatedAt = time.Unix(0, updatedAt).UTC()

		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// GetFeedCount returns the total number of feeds
func (r *FeedStatusStore) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}
