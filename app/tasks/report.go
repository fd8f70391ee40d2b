package tasks

import (
	"time"
)

// FeedReport is the outcome of ingesting one registry entry.
type FeedReport struct {
	Source   string        `json:"source"`
	Category string        `json:"category"`
	URL      string        `json:"url"`
	Fetched  int           `json:"fetched"`
	Saved    int           `json:"saved"`
	Skipped  int           `json:"skipped"`
	Errored  int           `json:"errored"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Failed reports whether the feed itself could not be fetched or parsed.
func (r FeedReport) Failed() bool {
	return r.Err != ""
}

// Report is the result of one ingestion run. Feeds are in registry order.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Feeds     []FeedReport  `json:"feeds"`
}

type Totals struct {
	Feeds       int `json:"feeds"`
	FailedFeeds int `json:"failed_feeds"`
	Fetched     int `json:"fetched"`
	Saved       int `json:"saved"`
	Skipped     int `json:"skipped"`
	Errored     int `json:"errored"`
}

func (r Report) Totals() Totals {
	totals := Totals{Feeds: len(r.Feeds)}
	for _, f := range r.Feeds {
		if f.Failed() {
			totals.FailedFeeds++
		}
		totals.Fetched += f.Fetched
		totals.Saved += f.Saved
		totals.Skipped += f.Skipped
		totals.Errored += f.Errored
	}
	return totals
}
