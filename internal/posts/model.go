package posts

import "encoding/json"

// Side values recognized by the query engine. A record with an empty side is
// treated as SideBoth at match time.
const (
	SideBoth = "Both"
	SideT    = "T"
	SideCT   = "CT"
)

// TypeNades is the post type whose subtypes participate in alias matching.
const TypeNades = "NADES"

// MapOtherSentinel marks a post whose real map name lives in MapOther.
const MapOtherSentinel = "Other"

// Image is an embedded media attachment. DataURL carries the full encoded
// payload and is persisted verbatim alongside the post.
type Image struct {
	ID      string `json:"id"`
	DataURL string `json:"dataUrl"`
	Caption string `json:"caption"`
}

// Post models one saved tactical note. Derived columns (TitleLower,
// TagsLower) are maintained by Derive and exist only for case-insensitive
// matching and ordering. Unknown payload fields survive round trips through
// the Extra map.
type Post struct {
	ID         string   `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Category   string   `gorm:"column:category;size:190;index:idx_posts_category" json:"category"`
	Type       string   `gorm:"column:type;size:190;index:idx_posts_type" json:"type"`
	Subtype    string   `gorm:"column:subtype;size:190;index:idx_posts_subtype" json:"subtype"`
	Map        string   `gorm:"column:map;size:190;index:idx_posts_map" json:"map"`
	MapOther   string   `gorm:"column:map_other;size:190" json:"mapOther"`
	Side       string   `gorm:"column:side;size:32;index:idx_posts_side" json:"side"`
	Title      string   `gorm:"column:title;type:text" json:"title"`
	TitleLower string   `gorm:"column:title_lower;type:text;index:idx_posts_title_lower" json:"title_lower"`
	Notes      string   `gorm:"column:notes;type:text" json:"notes"`
	Tags       []string `gorm:"column:tags;serializer:json" json:"tags"`
	TagsLower  []string `gorm:"column:tags_lower;serializer:json" json:"tags_lower"`
	Favorite   bool     `gorm:"column:favorite;not null;default:false;index:idx_posts_favorite" json:"favorite"`
	CreatedAt  string   `gorm:"column:created_at;size:64;index:idx_posts_created_at" json:"createdAt"`
	UpdatedAt  string   `gorm:"column:updated_at;size:64;index:idx_posts_updated_at" json:"updatedAt"`

	// Media payload, opaque to the query engine.
	YoutubeURL   string  `gorm:"column:youtube_url;type:text" json:"youtubeUrl"`
	YoutubeID    string  `gorm:"column:youtube_id;size:64" json:"youtubeId"`
	YoutubeStart int     `gorm:"column:youtube_start;not null;default:0" json:"youtubeStart"`
	MedalSrc     string  `gorm:"column:medal_src;type:text" json:"medalSrc"`
	WebmURL      string  `gorm:"column:webm_url;type:text" json:"webmUrl"`
	LinkURL      string  `gorm:"column:link_url;type:text" json:"linkUrl"`
	Images       []Image `gorm:"column:images;serializer:json" json:"images"`

	// Extra holds fields outside the documented schema so imports from
	// newer or foreign exports do not lose data.
	Extra map[string]json.RawMessage `gorm:"column:extra;serializer:json" json:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Post) TableName() string {
	return "posts"
}

// postAlias avoids MarshalJSON/UnmarshalJSON recursion.
type postAlias Post

// knownPostFields lists the JSON keys owned by the Post schema. Anything
// else routes through Extra.
var knownPostFields = map[string]struct{}{
	"id": {}, "category": {}, "type": {}, "subtype": {}, "map": {},
	"mapOther": {}, "side": {}, "title": {}, "title_lower": {}, "notes": {},
	"tags": {}, "tags_lower": {}, "favorite": {}, "createdAt": {},
	"updatedAt": {}, "youtubeUrl": {}, "youtubeId": {}, "youtubeStart": {},
	"medalSrc": {}, "webmUrl": {}, "linkUrl": {}, "images": {},
}

// MarshalJSON flattens Extra back into the top-level object. Known schema
// fields always win over a colliding Extra key.
func (p Post) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(postAlias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range p.Extra {
		if _, known := knownPostFields[key]; known {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

// UnmarshalJSON captures unknown keys into Extra.
func (p *Post) UnmarshalJSON(data []byte) error {
	var alias postAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if _, known := knownPostFields[key]; known {
			delete(raw, key)
		}
	}
	*p = Post(alias)
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

// Clone returns an independent copy; mutating the copy never touches stored
// state handed out by ListPosts.
func (p Post) Clone() Post {
	clone := p
	clone.Tags = append([]string(nil), p.Tags...)
	clone.TagsLower = append([]string(nil), p.TagsLower...)
	clone.Images = append([]Image(nil), p.Images...)
	if p.Extra != nil {
		clone.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for key, value := range p.Extra {
			clone.Extra[key] = append(json.RawMessage(nil), value...)
		}
	}
	return clone
}

// TagRecord is the tag-existence row backing suggestion vocabularies. Usage
// counts are never persisted here; TagStats recomputes them live.
type TagRecord struct {
	Name string `gorm:"column:name;primaryKey;size:190;not null"`
}

// TableName provides the explicit table binding for GORM.
func (TagRecord) TableName() string {
	return "tags"
}

// Setting is an uninterpreted key/value row. Value holds the JSON encoding
// of whatever the caller stored.
type Setting struct {
	Key   string `gorm:"column:key;primaryKey;size:190;not null"`
	Value string `gorm:"column:value;type:text;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Setting) TableName() string {
	return "settings"
}
