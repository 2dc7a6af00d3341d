// Package seed inserts a handful of demo posts on first run so a fresh
// install has something to render.
package seed

import (
	"context"
	"encoding/json"

	"github.com/MarcoPoloResearchLab/trickz/backend/internal/posts"
	"go.uber.org/zap"
)

// SettingKey is the settings flag that marks a store as already seeded.
const SettingKey = "seeded_v1"

func demoPosts() []posts.Post {
	return []posts.Post{
		{
			Type:         "NADES",
			Subtype:      "SMOKE",
			Map:          "Mirage",
			Side:         "T",
			Title:        "Mirage T SMOKE Window from T-spawn",
			Notes:        "Line up with the right side of the T-spawn door, aim at the top-left of the antenna, jump-throw.",
			Tags:         []string{"mid", "window", "default"},
			YoutubeURL:   "https://youtu.be/8Z6XwXxXxXx",
			YoutubeStart: 12,
			Favorite:     true,
		},
		{
			Type:    "NADES",
			Subtype: "FLASH",
			Map:     "Inferno",
			Side:    "CT",
			Title:   "Inferno CT FLASH Banana Pop",
			Notes:   "Stand CT car corner, aim above the wire, left-click throw. Blinds T banana rush.",
			Tags:    []string{"banana", "popflash", "ct"},
		},
		{
			Type:         "PLAYS",
			Subtype:      "Default A execute",
			Map:          "Anubis",
			Side:         "T",
			Title:        "Anubis A-site default execute",
			Notes:        "Two smokes (CT, Heaven), one molly default, flashes over temple. Lurk mid late.",
			Tags:         []string{"execute", "a-site", "default"},
			YoutubeURL:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			YoutubeStart: 42,
		},
		{
			Type:     "PLAYS",
			Subtype:  "Retake B",
			Map:      "Other",
			MapOther: "Tuscan",
			Side:     "CT",
			Title:    "Tuscan B retake with late mid pinch",
			Notes:    "Two push short late, one holds connector smoke fade. Save a flash for site cross.",
			Tags:     []string{"retake", "mid", "b-site"},
		},
	}
}

// EnsureDemoData adds the demo posts unless the store was seeded before.
// The gate is persisted in settings so reinstalls of the binary do not
// duplicate the demo records.
func EnsureDemoData(ctx context.Context, store *posts.Service, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	raw, found, err := store.GetSetting(ctx, SettingKey)
	if err != nil {
		return err
	}
	if found {
		var seeded bool
		if err := json.Unmarshal(raw, &seeded); err == nil && seeded {
			return nil
		}
	}

	demo := demoPosts()
	for _, post := range demo {
		if _, err := store.AddPost(ctx, post); err != nil {
			return err
		}
	}
	if err := store.SetSetting(ctx, SettingKey, true); err != nil {
		return err
	}

	logger.Info("demo data seeded", zap.Int("posts", len(demo)))
	return nil
}
