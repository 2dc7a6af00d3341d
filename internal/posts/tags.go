package posts

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagStat is one live usage entry: how many current posts carry the tag.
type TagStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// upsertTagNames records the distinct trimmed tag names in the existence
// table. Names are only ever added here; stale entries linger until the next
// full rebuild, which is acceptable because usage counts are computed live.
func upsertTagNames(tx *gorm.DB, tags []string) error {
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		name := strings.TrimSpace(tag)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		record := TagRecord{Name: name}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

// rebuildTagIndex recomputes the existence table from the current posts.
func rebuildTagIndex(tx *gorm.DB) error {
	var list []Post
	if err := tx.Find(&list).Error; err != nil {
		return err
	}
	if err := tx.Where("1 = 1").Delete(&TagRecord{}).Error; err != nil {
		return err
	}
	names := make(map[string]struct{})
	for _, post := range list {
		for _, tag := range post.Tags {
			name := strings.TrimSpace(tag)
			if name == "" {
				continue
			}
			names[name] = struct{}{}
		}
	}
	for name := range names {
		if err := tx.Create(&TagRecord{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}

// RebuildTags recomputes the tag existence table from scratch.
func (s *Service) RebuildTags(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(rebuildTagIndex)
	if err != nil {
		s.logError(opRebuildTags, "rebuild_failed", err)
		return newServiceError(opRebuildTags, "rebuild_failed", err)
	}
	return nil
}

// AllTagNames returns every tag name ever recorded, sorted ascending. The
// list may include names no longer used by any post.
func (s *Service) AllTagNames(ctx context.Context) ([]string, error) {
	var records []TagRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		s.logError(opAllTagNames, "query_failed", err)
		return nil, newServiceError(opAllTagNames, "query_failed", err)
	}
	names := make([]string, 0, len(records))
	for _, record := range records {
		names = append(names, record.Name)
	}
	sort.Strings(names)
	return names, nil
}

// TagStats counts tag usage live across the current posts, case-sensitive,
// sorted by descending count then ascending name. A non-positive limit
// returns every entry.
func (s *Service) TagStats(ctx context.Context, limit int) ([]TagStat, error) {
	list, err := s.ListPosts(ctx)
	if err != nil {
		return nil, newServiceError(opTagStats, "list_failed", err)
	}

	counts := make(map[string]int)
	for _, post := range list {
		for _, tag := range post.Tags {
			name := strings.TrimSpace(tag)
			if name == "" {
				continue
			}
			counts[name]++
		}
	}

	stats := make([]TagStat, 0, len(counts))
	for name, count := range counts {
		stats = append(stats, TagStat{Name: name, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Name < stats[j].Name
	})

	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}
