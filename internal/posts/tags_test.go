package posts

import (
	"context"
	"testing"
)

func TestTagStatsCountsLiveUsage(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	for _, tags := range [][]string{{"a"}, {"a", "b"}, {"b"}} {
		if _, err := service.AddPost(ctx, Post{Title: "p", Tags: tags}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stats, err := service.TagStats(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected two tags, got %#v", stats)
	}
	if stats[0].Name != "a" || stats[0].Count != 2 {
		t.Fatalf("tie must break alphabetically: %#v", stats)
	}
	if stats[1].Name != "b" || stats[1].Count != 2 {
		t.Fatalf("unexpected second entry: %#v", stats)
	}
}

func TestTagStatsIsCaseSensitiveAndLimited(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	seedTags := [][]string{
		{"Mid", "mid"},
		{"mid"},
		{"window"},
	}
	for _, tags := range seedTags {
		if _, err := service.AddPost(ctx, Post{Title: "p", Tags: tags}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stats, err := service.TagStats(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("Mid and mid are distinct tags, got %#v", stats)
	}
	if stats[0].Name != "mid" || stats[0].Count != 2 {
		t.Fatalf("unexpected leader: %#v", stats)
	}

	limited, err := service.TagStats(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 1 || limited[0].Name != "mid" {
		t.Fatalf("limit must truncate after sorting, got %#v", limited)
	}
}

func TestTagStatsReflectsDeletionsImmediately(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	stored, err := service.AddPost(ctx, Post{Title: "p", Tags: []string{"solo"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.DeletePost(ctx, stored.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := service.TagStats(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("stats are computed live, got %#v", stats)
	}
}

func TestAllTagNamesRetainsStaleEntriesUntilRebuild(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	stored, err := service.AddPost(ctx, Post{Title: "p", Tags: []string{"zeta", "alpha"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.DeletePost(ctx, stored.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names, err := service.AllTagNames(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("existence table keeps names sorted ascending, got %#v", names)
	}

	if err := service.RebuildTags(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names, err = service.AllTagNames(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("rebuild must drop stale names, got %#v", names)
	}
}

func TestWriteDeduplicatesTagExistenceRows(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if _, err := service.AddPost(ctx, Post{Title: "p1", Tags: []string{"mid", "mid"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.AddPost(ctx, Post{Title: "p2", Tags: []string{"mid"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names, err := service.AllTagNames(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 1 || names[0] != "mid" {
		t.Fatalf("expected a single existence row, got %#v", names)
	}
}
