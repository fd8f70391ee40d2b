package database

import (
	"time"
)

// Article is a stored canonical article. Stored articles are never updated.
type Article struct {
	ID          string
	Title       string
	Summary     string
	Link        string // uniqueness key
	Source      string
	Category    string
	PublishedAt *time.Time
	ImageURL    string
	Author      string
	Tags        []string
	OriginFeed  string
	IngestedAt  time.Time // set by Insert when zero
}

// ArticleFilter narrows Query and Count. Zero values match everything.
type ArticleFilter struct {
	Category string // case-insensitive substring
	Source   string // case-insensitive substring
	Search   string // case-insensitive substring of title or summary

	// Reader preferences: case-insensitive exact membership
	PreferredCategories []string
	PreferredSources    []string

	Limit  int // zero means no limit
	Offset int
}

type GroupCount struct {
	Name  string
	Count int
}

type Stats struct {
	TotalArticles int
	Categories    []GroupCount
	Sources       []GroupCount
	LastIngested  *time.Time
}

// FeedStatus is one registry entry and the outcome of its last fetch.
type FeedStatus struct {
	ID            string
	Source        string
	Category      string
	URL           string
	LastFetchedAt *time.Time
	LastSuccessAt *time.Time
	LastError     string
	LastFetched   int
	LastSaved     int
	LastSkipped   int
	LastErrored   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FetchOutcome is what one ingestion of a feed produced.
type FetchOutcome struct {
	FetchedAt time.Time
	Fetched   int
	Saved     int
	Skipped   int
	Errored   int
	Err       string // empty on success
}
