package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var validFilterFields = map[string]bool{
	"title":   true,
	"summary": true,
	"author":  true,
	"link":    true,
	"tags":    true,
}

// Registry is the static, ordered list of feeds to ingest. It is built once
// from configuration and never mutated afterwards.
type Registry struct {
	entries []Entry
}

func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	registry, err := NewRegistry(config)
	if err != nil {
		return nil, fmt.Errorf("invalid registry %s: %w", path, err)
	}

	slog.Debug("Registry loaded", "path", path, "feeds", registry.Count())

	return registry, nil
}

func NewRegistry(config Config) (*Registry, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	var entries []Entry
	for _, source := range config.Sources {
		for _, feedConfig := range source.Feeds {
			settings := mergeSettings(config.Defaults, source.Settings, feedConfig.Settings)
			if settings.Enabled != nil && !*settings.Enabled {
				slog.Debug("Feed disabled, not registered", "source", source.Name, "category", feedConfig.Category)
				continue
			}

			entries = append(entries, Entry{
				Source:         strings.TrimSpace(source.Name),
				Category:       strings.TrimSpace(feedConfig.Category),
				URL:            strings.TrimSpace(feedConfig.URL),
				Timeout:        time.Duration(settings.Timeout) * time.Second,
				ExtractSummary: settings.ExtractSummary != nil && *settings.ExtractSummary,
				Filters:        feedConfig.Filters,
			})
		}
	}

	return &Registry{entries: entries}, nil
}

// ListFeeds returns the registered feeds in configuration order.
func (r *Registry) ListFeeds() []Entry {
	entriesCopy := make([]Entry, len(r.entries))
	copy(entriesCopy, r.entries)
	return entriesCopy
}

func (r *Registry) GetFeed(source, category string) (Entry, bool) {
	for _, entry := range r.entries {
		if strings.EqualFold(entry.Source, source) && strings.EqualFold(entry.Category, category) {
			return entry, true
		}
	}
	return Entry{}, false
}

func (r *Registry) Count() int {
	return len(r.entries)
}

// mergeSettings resolves settings from the most general to the most specific level.
func mergeSettings(levels ...Settings) Settings {
	var merged Settings
	for _, level := range levels {
		if level.Enabled != nil {
			merged.Enabled = level.Enabled
		}
		if level.Timeout != 0 {
			merged.Timeout = level.Timeout
		}
		if level.ExtractSummary != nil {
			merged.ExtractSummary = level.ExtractSummary
		}
	}
	return merged
}

func validateConfig(config Config) error {
	if config.Defaults.Timeout < 0 {
		return fmt.Errorf("default timeout must be non-negative")
	}

	seen := make(map[string]bool)
	for i, source := range config.Sources {
		name := strings.TrimSpace(source.Name)
		if name == "" {
			return fmt.Errorf("source at index %d: name is required", i)
		}
		if source.Settings.Timeout < 0 {
			return fmt.Errorf("source %s: timeout must be non-negative", name)
		}

		for j, feedConfig := range source.Feeds {
			category := strings.TrimSpace(feedConfig.Category)
			if category == "" {
				return fmt.Errorf("source %s, feed at index %d: category is required", name, j)
			}
			if err := validateFeedURL(feedConfig.URL); err != nil {
				return fmt.Errorf("source %s, category %s: %w", name, category, err)
			}
			if feedConfig.Settings.Timeout < 0 {
				return fmt.Errorf("source %s, category %s: timeout must be non-negative", name, category)
			}

			key := strings.ToLower(name) + "\x00" + strings.ToLower(category)
			if seen[key] {
				return fmt.Errorf("source %s, category %s: duplicate feed", name, category)
			}
			seen[key] = true

			for k, filter := range feedConfig.Filters {
				if !validFilterFields[filter.Field] {
					return fmt.Errorf("source %s, category %s: invalid filter field at index %d: %s", name, category, k, filter.Field)
				}
				if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
					return fmt.Errorf("source %s, category %s: filter at index %d must have at least one include or exclude rule", name, category, k)
				}
			}
		}
	}

	return nil
}

func validateFeedURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("feed URL is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid feed URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("feed URL %q must be an absolute http(s) URL", raw)
	}

	return nil
}
