package feed

import (
	"fmt"
	"strings"
)

// Filterer applies a feed's include/exclude rules to normalized articles.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns a skip error when the article is excluded by filters.
func (f *Filterer) Run(article Article, filters []ConfigFilter) error {
	for _, filter := range filters {
		value := f.getFieldValue(article, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return &SkipError{
					Field:  filter.Field,
					Reason: ErrFiltered,
					Detail: fmt.Sprintf("contains '%s'", exclude),
				}
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return &SkipError{
					Field:  filter.Field,
					Reason: ErrFiltered,
					Detail: fmt.Sprintf("does not contain any of %v", filter.Includes),
				}
			}
		}
	}

	return nil
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(article Article, field string) string {
	switch field {
	case "title":
		return article.Title
	case "summary":
		return article.Summary
	case "author":
		return article.Author
	case "link":
		return article.Link
	case "tags":
		return strings.Join(article.Tags, " ")
	default:
		return ""
	}
}
