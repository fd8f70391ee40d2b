package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedStatusStore_UpsertAndRecord(t *testing.T) {
	ctx := context.Background()
	store := NewFeedStatusStore(openTestDB(t))

	require.NoError(t, store.UpsertFeed(ctx, "NDTV", "Sports", "https://example.com/sports.xml"))
	require.NoError(t, store.UpsertFeed(ctx, "ndtv", "sports", "https://example.com/sports-v2.xml"))
	require.NoError(t, store.UpsertFeed(ctx, "NDTV", "Business", "https://example.com/business.xml"))

	count, err := store.GetFeedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	fetchedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordFetch(ctx, "NDTV", "Sports", FetchOutcome{
		FetchedAt: fetchedAt, Fetched: 3, Saved: 2, Skipped: 1,
	}))
	require.NoError(t, store.RecordFetch(ctx, "NDTV", "Business", FetchOutcome{
		FetchedAt: fetchedAt, Errored: 1, Err: "timeout",
	}))

	feeds, err := store.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	business, sports := feeds[0], feeds[1]

	assert.Equal(t, "Sports", sports.Category)
	assert.Equal(t, "https://example.com/sports-v2.xml", sports.URL)
	assert.Equal(t, 3, sports.LastFetched)
	assert.Equal(t, 2, sports.LastSaved)
	assert.Equal(t, 1, sports.LastSkipped)
	assert.Empty(t, sports.LastError)
	require.NotNil(t, sports.LastSuccessAt)
	assert.True(t, sports.LastSuccessAt.Equal(fetchedAt))

	assert.Equal(t, "timeout", business.LastError)
	assert.Equal(t, 1, business.LastErrored)
	require.NotNil(t, business.LastFetchedAt)
	assert.Nil(t, business.LastSuccessAt)
}

func TestFeedStatusStore_RecordUnknownFeed(t *testing.T) {
	store := NewFeedStatusStore(openTestDB(t))

	err := store.RecordFetch(context.Background(), "Nope", "None", FetchOutcome{})
	assert.Error(t, err)
}
