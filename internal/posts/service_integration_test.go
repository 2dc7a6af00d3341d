package posts

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:trickz_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Post{}, &TagRecord{}, &Setting{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	clock := func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: NewULIDProvider(clock),
	})
	if err != nil {
		t.Fatalf("failed to construct posts service: %v", err)
	}

	return service, db
}

func TestServiceAddAndGetRoundTrip(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	stored, err := service.AddPost(ctx, Post{
		Type:    "NADES",
		Subtype: "smoke",
		Map:     "Mirage",
		Side:    SideT,
		Title:   "Window from spawn",
		Tags:    []string{"mid", " window "},
		Images:  []Image{{ID: "img-1", DataURL: "data:image/png;base64,AAAA", Caption: "lineup"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if stored.Subtype != "SMOKE" {
		t.Fatalf("expected derived subtype, got %q", stored.Subtype)
	}

	loaded, err := service.GetPost(ctx, stored.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded == nil {
		t.Fatalf("expected stored post")
	}
	if loaded.Title != "Window from spawn" || loaded.TitleLower != "window from spawn" {
		t.Fatalf("unexpected titles %q / %q", loaded.Title, loaded.TitleLower)
	}
	if len(loaded.Images) != 1 || loaded.Images[0].DataURL != "data:image/png;base64,AAAA" {
		t.Fatalf("image payload must persist verbatim, got %#v", loaded.Images)
	}
	if len(loaded.TagsLower) != 2 || loaded.TagsLower[1] != "window" {
		t.Fatalf("unexpected tags_lower %#v", loaded.TagsLower)
	}
}

func TestServiceGetMissingIsNotAnError(t *testing.T) {
	service, _ := newTestService(t)

	post, err := service.GetPost(context.Background(), "nope")
	if err != nil {
		t.Fatalf("missing id must not error: %v", err)
	}
	if post != nil {
		t.Fatalf("expected nil post for missing id")
	}
}

func TestServiceDeleteIsIdempotent(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	stored, err := service.AddPost(ctx, Post{Title: "to delete"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.DeletePost(ctx, stored.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.DeletePost(ctx, stored.ID); err != nil {
		t.Fatalf("deleting a missing id must be a no-op: %v", err)
	}

	post, err := service.GetPost(ctx, stored.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post != nil {
		t.Fatalf("expected post to be gone")
	}
}

func TestServicePutUpsertsById(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	stored, err := service.AddPost(ctx, Post{Title: "v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored.Title = "v2"
	updated, err := service.PutPost(ctx, stored)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ID != stored.ID {
		t.Fatalf("put must keep the id, got %q", updated.ID)
	}
	if updated.CreatedAt != stored.CreatedAt {
		t.Fatalf("put must keep createdAt")
	}

	all, err := service.ListPosts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single record after upsert, got %d", len(all))
	}
	if all[0].Title != "v2" {
		t.Fatalf("expected updated title, got %q", all[0].Title)
	}
}

func TestServiceListReturnsIndependentSnapshots(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	stored, err := service.AddPost(ctx, Post{Title: "original", Tags: []string{"mid"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := service.ListPosts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first[0].Title = "mutated"
	first[0].Tags[0] = "mutated"

	reloaded, err := service.GetPost(ctx, stored.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloaded.Title != "original" || reloaded.Tags[0] != "mid" {
		t.Fatalf("mutating a snapshot must not corrupt stored state: %#v", reloaded)
	}
}

func TestServiceQueryPostsAppliesFilter(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	seedPosts := []Post{
		{Type: "NADES", Subtype: "SMOKE", Map: "Mirage", Side: SideT, Title: "window"},
		{Type: "NADES", Subtype: "MOLLIE", Map: "Mirage", Side: SideT, Title: "top mid molly"},
		{Type: "PLAYS", Subtype: "Retake B", Map: "Other", MapOther: "Tuscan", Title: "retake"},
	}
	for _, post := range seedPosts {
		if _, err := service.AddPost(ctx, post); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	matched, err := service.QueryPosts(ctx, Filter{Type: "NADES", Subtype: "MOLLY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != 1 || matched[0].Title != "top mid molly" {
		t.Fatalf("expected the mollie post via alias, got %#v", titlesOf(matched))
	}

	matched, err = service.QueryPosts(ctx, Filter{Map: "tuscan"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != 1 || matched[0].Title != "retake" {
		t.Fatalf("expected the Other-map post, got %#v", titlesOf(matched))
	}

	matched, err = service.QueryPosts(ctx, Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != len(seedPosts) {
		t.Fatalf("empty filter must return everything, got %d", len(matched))
	}
}

func TestServiceMergePreservesOmittedFields(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	stored, err := service.AddPost(ctx, Post{Title: "Old", Notes: "keep me", Tags: []string{"mid"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	incoming := []json.RawMessage{
		json.RawMessage(fmt.Sprintf(`{"id":%q,"title":"New"}`, stored.ID)),
		json.RawMessage(`{"id":"fresh-1","title":"Brand new","tags":["window"]}`),
	}
	if err := service.MergePosts(ctx, incoming); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	merged, err := service.GetPost(ctx, stored.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.Title != "New" {
		t.Fatalf("incoming field must overwrite, got %q", merged.Title)
	}
	if merged.Notes != "keep me" {
		t.Fatalf("omitted field must be preserved, got %q", merged.Notes)
	}
	if len(merged.Tags) != 1 || merged.Tags[0] != "mid" {
		t.Fatalf("omitted tags must be preserved, got %#v", merged.Tags)
	}

	fresh, err := service.GetPost(ctx, "fresh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh == nil || fresh.Title != "Brand new" {
		t.Fatalf("unseen id must insert as new, got %#v", fresh)
	}
}

func TestServiceReplaceAllIsDestructive(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	old, err := service.AddPost(ctx, Post{Title: "doomed", Tags: []string{"stale"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replacement := []Post{
		{ID: "r-1", Title: "first", Tags: []string{"fresh"}},
		{ID: "r-2", Title: "second"},
	}
	if err := service.ReplaceAllPosts(ctx, replacement); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gone, err := service.GetPost(ctx, old.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gone != nil {
		t.Fatalf("replace must discard prior records")
	}

	all, err := service.ListPosts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected exactly the replacement set, got %d", len(all))
	}

	names, err := service.AllTagNames(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 1 || names[0] != "fresh" {
		t.Fatalf("replace must rebuild the tag index, got %#v", names)
	}
}

func TestServiceSettingsRoundTrip(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, found, err := service.GetSetting(ctx, "filters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("unset key must report not found")
	}

	if err := service.SetSetting(ctx, "custom_maps", []string{"Tuscan", "Cache"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, found, err := service.GetSetting(ctx, "custom_maps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatalf("expected stored setting")
	}

	var maps []string
	if err := json.Unmarshal(raw, &maps); err != nil {
		t.Fatalf("stored value must stay valid JSON: %v", err)
	}
	if len(maps) != 2 || maps[0] != "Tuscan" {
		t.Fatalf("unexpected setting value %#v", maps)
	}

	if err := service.SetSetting(ctx, "custom_maps", []string{"Tuscan"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _, err = service.GetSetting(ctx, "custom_maps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal(raw, &maps); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(maps) != 1 {
		t.Fatalf("set must overwrite, got %#v", maps)
	}
}

func TestServiceMergeKeepsUnknownFields(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	incoming := []json.RawMessage{
		json.RawMessage(`{"id":"x-1","title":"imported","crosshairCode":"CSGO-abc"}`),
	}
	if err := service.MergePosts(ctx, incoming); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := service.GetPost(ctx, "x-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected imported post")
	}

	encoded, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(encoded, &asMap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asMap["crosshairCode"] != "CSGO-abc" {
		t.Fatalf("unknown fields must survive the round trip, got %#v", asMap["crosshairCode"])
	}
}
