package posts

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort modes accepted by SortPosts.
const (
	SortModified  = "modified"
	SortCreated   = "created"
	SortFavorites = "favorites"
	SortAlpha     = "alpha"
)

// NewCollator returns the collator used for locale-aware title and tag
// ordering.
func NewCollator() *collate.Collator {
	return collate.New(language.Und)
}

// SortPosts orders the slice in place by the named mode, defaulting to
// SortModified for unknown tokens. The sort is stable: equal keys keep their
// original relative order.
func SortPosts(list []Post, mode string, collator *collate.Collator) {
	if collator == nil {
		collator = NewCollator()
	}
	switch mode {
	case SortCreated:
		sort.SliceStable(list, func(i, j int) bool {
			return parseStamp(list[i].CreatedAt).After(parseStamp(list[j].CreatedAt))
		})
	case SortFavorites:
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Favorite != list[j].Favorite {
				return list[i].Favorite
			}
			return parseStamp(list[i].UpdatedAt).After(parseStamp(list[j].UpdatedAt))
		})
	case SortAlpha:
		sort.SliceStable(list, func(i, j int) bool {
			return collator.CompareString(list[i].Title, list[j].Title) < 0
		})
	default:
		sort.SliceStable(list, func(i, j int) bool {
			return parseStamp(list[i].UpdatedAt).After(parseStamp(list[j].UpdatedAt))
		})
	}
}

// parseStamp reads an RFC 3339 timestamp string; missing or unparseable
// values sort as the epoch.
func parseStamp(value string) time.Time {
	if value == "" {
		return time.Unix(0, 0).UTC()
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return parsed
}
