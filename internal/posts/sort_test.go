package posts

import "testing"

func titlesOf(list []Post) []string {
	titles := make([]string, len(list))
	for i, post := range list {
		titles[i] = post.Title
	}
	return titles
}

func assertOrder(t *testing.T, list []Post, want ...string) {
	t.Helper()
	got := titlesOf(list)
	if len(got) != len(want) {
		t.Fatalf("unexpected length: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v want %v", got, want)
		}
	}
}

func TestSortPostsModifiedIsDefaultAndDescending(t *testing.T) {
	list := []Post{
		{Title: "old", UpdatedAt: "2026-01-01T00:00:00Z"},
		{Title: "new", UpdatedAt: "2026-03-01T00:00:00Z"},
		{Title: "mid", UpdatedAt: "2026-02-01T00:00:00Z"},
	}
	SortPosts(list, "definitely-not-a-mode", nil)
	assertOrder(t, list, "new", "mid", "old")
}

func TestSortPostsStableForEqualKeys(t *testing.T) {
	stamp := "2026-02-01T00:00:00Z"
	list := []Post{
		{Title: "first", UpdatedAt: stamp},
		{Title: "second", UpdatedAt: stamp},
		{Title: "third", UpdatedAt: stamp},
	}
	SortPosts(list, SortModified, nil)
	assertOrder(t, list, "first", "second", "third")
}

func TestSortPostsMissingTimestampsSortLast(t *testing.T) {
	list := []Post{
		{Title: "unstamped"},
		{Title: "garbled", UpdatedAt: "not-a-time"},
		{Title: "stamped", UpdatedAt: "2026-02-01T00:00:00Z"},
	}
	SortPosts(list, SortModified, nil)
	assertOrder(t, list, "stamped", "unstamped", "garbled")
}

func TestSortPostsCreated(t *testing.T) {
	list := []Post{
		{Title: "older", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-03-05T00:00:00Z"},
		{Title: "newer", CreatedAt: "2026-03-01T00:00:00Z", UpdatedAt: "2026-03-01T00:00:00Z"},
	}
	SortPosts(list, SortCreated, nil)
	assertOrder(t, list, "newer", "older")
}

func TestSortPostsFavoritesFirstThenModified(t *testing.T) {
	list := []Post{
		{Title: "plain-new", UpdatedAt: "2026-03-01T00:00:00Z"},
		{Title: "fav-old", Favorite: true, UpdatedAt: "2026-01-01T00:00:00Z"},
		{Title: "fav-new", Favorite: true, UpdatedAt: "2026-02-01T00:00:00Z"},
	}
	SortPosts(list, SortFavorites, nil)
	assertOrder(t, list, "fav-new", "fav-old", "plain-new")
}

func TestSortPostsAlphaUsesCollation(t *testing.T) {
	list := []Post{
		{Title: "banana"},
		{Title: ""},
		{Title: "Apple"},
	}
	SortPosts(list, SortAlpha, NewCollator())
	assertOrder(t, list, "", "Apple", "banana")
}
