package feed

import (
	"errors"
	"testing"
)

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	article := Article{Title: "Test Item 1", Summary: "Test description"}

	if err := filterer.Run(article, nil); err != nil {
		t.Errorf("Article should pass when no filters are configured, got: %v", err)
	}
}

func TestFilterer_TitleIncludeFilter(t *testing.T) {
	filterer := NewFilterer()

	filters := []ConfigFilter{
		{
			Field:    "title",
			Includes: []string{"news", "update"},
		},
	}

	tests := []struct {
		title    string
		filtered bool
	}{
		{"Breaking News: Important Update", false},
		{"Sports Update", false},
		{"Weather Report", true},
	}

	for _, test := range tests {
		err := filterer.Run(Article{Title: test.title}, filters)
		if (err != nil) != test.filtered {
			t.Errorf("Title '%s': expected filtered=%v, got err=%v", test.title, test.filtered, err)
		}
	}
}

func TestFilterer_ExcludeWinsOverInclude(t *testing.T) {
	filterer := NewFilterer()

	filters := []ConfigFilter{
		{
			Field:    "title",
			Includes: []string{"tech"},
			Excludes: []string{"advertisement"},
		},
	}

	err := filterer.Run(Article{Title: "Tech Advertisement"}, filters)
	if err == nil {
		t.Fatal("Article should be filtered due to excluded term")
	}
	if !errors.Is(err, ErrFiltered) {
		t.Errorf("Expected ErrFiltered, got: %v", err)
	}
	if !IsSkip(err) {
		t.Error("Filtered articles should be reported as skips")
	}
}

func TestFilterer_MultipleFields(t *testing.T) {
	filterer := NewFilterer()

	filters := []ConfigFilter{
		{
			Field:    "title",
			Includes: []string{"news"},
		},
		{
			Field:    "author",
			Excludes: []string{"spam"},
		},
	}

	if err := filterer.Run(Article{Title: "News Update", Author: "Tech Writer"}, filters); err != nil {
		t.Errorf("First article should not be filtered, got: %v", err)
	}
	if err := filterer.Run(Article{Title: "Random Article", Author: "Tech Writer"}, filters); err == nil {
		t.Error("Second article should be filtered, title doesn't contain 'news'")
	}
	if err := filterer.Run(Article{Title: "Sports News", Author: "Spammer"}, filters); err == nil {
		t.Error("Third article should be filtered by author")
	}
}

func TestFilterer_TagsField(t *testing.T) {
	filterer := NewFilterer()

	filters := []ConfigFilter{
		{
			Field:    "tags",
			Includes: []string{"cricket"},
		},
	}

	if err := filterer.Run(Article{Title: "A", Tags: []string{"Sports", "Cricket"}}, filters); err != nil {
		t.Errorf("Article with matching tag should pass, got: %v", err)
	}
	if err := filterer.Run(Article{Title: "B", Tags: []string{"Football"}}, filters); err == nil {
		t.Error("Article without matching tag should be filtered")
	}
}

func TestFilterer_GetFieldValue(t *testing.T) {
	filterer := NewFilterer()

	article := Article{
		Title:   "Test Title",
		Summary: "Test Summary",
		Author:  "Test Author",
		Link:    "https://example.com",
		Tags:    []string{"tag1", "tag2"},
	}

	tests := []struct {
		field    string
		expected string
	}{
		{"title", "Test Title"},
		{"summary", "Test Summary"},
		{"author", "Test Author"},
		{"link", "https://example.com"},
		{"tags", "tag1 tag2"},
		{"unknown", ""},
	}

	for _, test := range tests {
		result := filterer.getFieldValue(article, test.field)
		if result != test.expected {
			t.Errorf("getFieldValue(%s): expected '%s', got '%s'", test.field, test.expected, result)
		}
	}
}

func TestFilterer_MatchesFilter(t *testing.T) {
	filterer := NewFilterer()

	tests := []struct {
		value    string
		pattern  string
		expected bool
	}{
		{"Hello World", "hello", true},
		{"Hello World", "WORLD", true},
		{"Hello World", "xyz", false},
		{"", "test", false},
		{"test", "", true},
	}

	for _, test := range tests {
		result := filterer.matchesFilter(test.value, test.pattern)
		if result != test.expected {
			t.Errorf("matchesFilter('%s', '%s'): expected %v, got %v", test.value, test.pattern, test.expected, result)
		}
	}
}
