package posts

import "strings"

// FavoriteOnly is the only recognized non-empty favorite mode.
const FavoriteOnly = "only"

// Filter is an explicit value describing every optional predicate of a
// query. An empty field imposes no constraint.
type Filter struct {
	Category     string `json:"category"`
	Type         string `json:"type"`
	Subtype      string `json:"subtype"`
	Map          string `json:"map"`
	MapOther     string `json:"mapOther"`
	Side         string `json:"side"`
	FavoriteMode string `json:"favoriteMode"`
	Tags         string `json:"tags"`
	Search       string `json:"search"`
}

// NormalizeFilter converts raw UI state into the canonical filter the query
// engine consumes: values are trimmed and a requested nade subtype is
// canonicalized through the alias map. Subtypes for other types pass through
// as typed, scoped per type.
func NormalizeFilter(state Filter) Filter {
	out := Filter{
		Category:     state.Category,
		Type:         state.Type,
		Subtype:      strings.TrimSpace(state.Subtype),
		Map:          strings.TrimSpace(state.Map),
		MapOther:     strings.TrimSpace(state.MapOther),
		Side:         state.Side,
		FavoriteMode: state.FavoriteMode,
		Tags:         joinTags(splitTags(state.Tags)),
		Search:       strings.TrimSpace(state.Search),
	}
	if out.Type == TypeNades && out.Subtype != "" {
		out.Subtype = canonicalNadeSubtype(out.Subtype)
	}
	return out
}

// MatchPost reports whether the post satisfies every active predicate of the
// filter. Predicates combine with AND; unset predicates match everything.
func MatchPost(post Post, filter Filter) bool {
	if filter.Category != "" && post.Category != filter.Category {
		return false
	}

	if filter.Type != "" && post.Type != filter.Type {
		return false
	}

	subtype := strings.TrimSpace(filter.Subtype)
	switch {
	case filter.Type == TypeNades:
		if subtype != "" {
			have := canonicalNadeSubtype(post.Subtype)
			want := canonicalNadeSubtype(subtype)
			if have != want {
				return false
			}
		}
	case filter.Type != "":
		// Non-NADES types match subtype by plain case-insensitive equality.
		if subtype != "" && !strings.EqualFold(post.Subtype, subtype) {
			return false
		}
	default:
		// No type selected: subtype imposes no constraint.
	}

	if mapName := strings.TrimSpace(filter.Map); mapName != "" {
		want := strings.ToLower(mapName)
		postMap := strings.TrimSpace(post.Map)
		matched := postMap != "" && strings.ToLower(postMap) == want
		if !matched && postMap == MapOtherSentinel {
			other := strings.TrimSpace(post.MapOther)
			matched = other != "" && strings.ToLower(other) == want
		}
		if !matched {
			return false
		}
	}

	if filter.Side != "" {
		effective := post.Side
		if effective == "" {
			effective = SideBoth
		}
		if effective != filter.Side {
			return false
		}
	}

	if filter.FavoriteMode == FavoriteOnly && !post.Favorite {
		return false
	}

	if wanted := splitTags(strings.ToLower(filter.Tags)); len(wanted) > 0 {
		for _, tag := range wanted {
			if !containsString(post.TagsLower, tag) {
				return false
			}
		}
	}

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		haystack := strings.ToLower(post.Title + " " + post.Notes)
		if !strings.Contains(haystack, search) {
			return false
		}
	}

	return true
}

// canonicalNadeSubtype maps the legacy MOLLIE spelling onto the canonical
// MOLLY so both spellings match each other. Everything else passes through
// upper-cased; the stored value is never rewritten.
func canonicalNadeSubtype(value string) string {
	up := strings.ToUpper(strings.TrimSpace(value))
	if up == "MOLLIE" {
		return "MOLLY"
	}
	return up
}

func splitTags(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func containsString(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}
