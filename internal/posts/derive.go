package posts

import (
	"strings"
	"time"
)

// Derive normalizes a raw post into canonical stored form. It never rejects
// a record: validation, if any, belongs to the caller boundary. Applied to
// an already-canonical post it changes only UpdatedAt.
func Derive(post Post, now time.Time, ids IDProvider) (Post, error) {
	derived := post.Clone()

	derived.TitleLower = strings.ToLower(derived.Title)

	cleaned := make([]string, 0, len(derived.Tags))
	for _, tag := range derived.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	derived.Tags = cleaned
	lowered := make([]string, len(cleaned))
	for i, tag := range cleaned {
		lowered[i] = strings.ToLower(tag)
	}
	derived.TagsLower = lowered

	derived.Subtype = strings.ToUpper(strings.TrimSpace(derived.Subtype))

	stamp := now.UTC().Format(time.RFC3339Nano)
	if derived.CreatedAt == "" {
		derived.CreatedAt = stamp
	}
	derived.UpdatedAt = stamp

	if derived.ID == "" {
		id, err := ids.NewID()
		if err != nil {
			return Post{}, err
		}
		derived.ID = id
	}

	return derived, nil
}
