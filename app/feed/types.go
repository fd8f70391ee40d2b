package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title           string
	Link            string
	Description     string
	ImageURL        string
	Language        string
	FeedPublishedAt *time.Time
}

// Origin is the registry context an entry was fetched under.
type Origin struct {
	Source   string
	Category string
	FeedURL  string
	SiteLink string // feed's own <link>, used to resolve relative entry links
}

// Article is the canonical, store-ready shape of one feed entry.
type Article struct {
	Title       string
	Summary     string
	Link        string
	Source      string
	Category    string
	PublishedAt *time.Time // nil when the feed gave no usable date
	ImageURL    string
	Author      string
	Tags        []string
	OriginFeed  string
}

// Registry configuration types

type Config struct {
	Defaults Settings       `yaml:"defaults"`
	Sources  []SourceConfig `yaml:"sources"`
}

type SourceConfig struct {
	Name     string       `yaml:"name"`
	Settings Settings     `yaml:"settings"`
	Feeds    []FeedConfig `yaml:"feeds"`
}

type FeedConfig struct {
	Category string         `yaml:"category"`
	URL      string         `yaml:"url"`
	Settings Settings       `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

// Settings fields left unset inherit from the enclosing level.
type Settings struct {
	Enabled        *bool `yaml:"enabled"`
	Timeout        int   `yaml:"timeout"` // seconds
	ExtractSummary *bool `yaml:"extract_summary"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// Entry is one resolved (source, category, url) row of the registry.
type Entry struct {
	Source         string
	Category       string
	URL            string
	Timeout        time.Duration // zero means the orchestrator default
	ExtractSummary bool
	Filters        []ConfigFilter
}
