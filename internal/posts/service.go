package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError wraps a failure with a dotted operation code such as
// "posts.add.post_insert_failed".
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew  = "posts.service.new"
	opAddPost     = "posts.add"
	opPutPost     = "posts.put"
	opDeletePost  = "posts.delete"
	opGetPost     = "posts.get"
	opListPosts   = "posts.list"
	opQueryPosts  = "posts.query"
	opReplaceAll  = "posts.replace_all"
	opMergePosts  = "posts.merge"
	opRebuildTags = "posts.rebuild_tags"
	opAllTagNames = "posts.all_tag_names"
	opTagStats    = "posts.tag_stats"
	opGetSetting  = "posts.get_setting"
	opSetSetting  = "posts.set_setting"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of the posts service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service is the record store: durable keyed storage for posts, tags and
// settings with the query, sort and tag-index surfaces built on top.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// AddPost derives fields on the raw post and inserts it. The row write and
// the tag-existence update share one transaction.
func (s *Service) AddPost(ctx context.Context, post Post) (Post, error) {
	return s.writePost(ctx, opAddPost, post, func(tx *gorm.DB, derived *Post) error {
		return tx.Create(derived).Error
	})
}

// PutPost derives fields on the raw post and upserts it by id.
func (s *Service) PutPost(ctx context.Context, post Post) (Post, error) {
	return s.writePost(ctx, opPutPost, post, func(tx *gorm.DB, derived *Post) error {
		return tx.Save(derived).Error
	})
}

func (s *Service) writePost(ctx context.Context, operation string, post Post, persist func(*gorm.DB, *Post) error) (Post, error) {
	derived, err := Derive(post, s.clock(), s.idProvider)
	if err != nil {
		s.logError(operation, "derive_failed", err)
		return Post{}, newServiceError(operation, "derive_failed", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := persist(tx, &derived); err != nil {
			s.logError(operation, "post_write_failed", err, zap.String("post_id", derived.ID))
			return newServiceError(operation, "post_write_failed", err)
		}
		if err := upsertTagNames(tx, derived.Tags); err != nil {
			s.logError(operation, "tag_upsert_failed", err, zap.String("post_id", derived.ID))
			return newServiceError(operation, "tag_upsert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Post{}, txErr
	}

	return derived, nil
}

// DeletePost removes a post by id. Deleting an unknown id is a no-op.
func (s *Service) DeletePost(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Post{}).Error; err != nil {
		s.logError(opDeletePost, "post_delete_failed", err, zap.String("post_id", id))
		return newServiceError(opDeletePost, "post_delete_failed", err)
	}
	return nil
}

// GetPost returns the post with the given id, or nil when it does not exist.
// A missing id is not an error.
func (s *Service) GetPost(ctx context.Context, id string) (*Post, error) {
	var post Post
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logError(opGetPost, "post_select_failed", err, zap.String("post_id", id))
		return nil, newServiceError(opGetPost, "post_select_failed", err)
	}
	return &post, nil
}

// ListPosts returns an independent snapshot of every stored post. Mutating
// the returned records never corrupts stored state.
func (s *Service) ListPosts(ctx context.Context) ([]Post, error) {
	var list []Post
	if err := s.db.WithContext(ctx).Find(&list).Error; err != nil {
		s.logError(opListPosts, "query_failed", err)
		return nil, newServiceError(opListPosts, "query_failed", err)
	}
	return list, nil
}

// ExportPosts returns the full record set for a snapshot export.
func (s *Service) ExportPosts(ctx context.Context) ([]Post, error) {
	return s.ListPosts(ctx)
}

// QueryPosts evaluates the filter against every stored post with a linear
// scan. Secondary indexes exist on the table but are not consulted here; at
// single-user catalog scale the scan is the whole query plan.
func (s *Service) QueryPosts(ctx context.Context, filter Filter) ([]Post, error) {
	all, err := s.ListPosts(ctx)
	if err != nil {
		return nil, newServiceError(opQueryPosts, "list_failed", err)
	}
	matched := make([]Post, 0, len(all))
	for _, post := range all {
		if MatchPost(post, filter) {
			matched = append(matched, post)
		}
	}
	return matched, nil
}

// ReplaceAllPosts discards every stored post, inserts the incoming records
// in order and rebuilds the tag index from scratch, all in one transaction.
func (s *Service) ReplaceAllPosts(ctx context.Context, incoming []Post) error {
	derived := make([]Post, 0, len(incoming))
	for _, post := range incoming {
		record, err := Derive(post, s.clock(), s.idProvider)
		if err != nil {
			s.logError(opReplaceAll, "derive_failed", err)
			return newServiceError(opReplaceAll, "derive_failed", err)
		}
		derived = append(derived, record)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Post{}).Error; err != nil {
			s.logError(opReplaceAll, "truncate_failed", err)
			return newServiceError(opReplaceAll, "truncate_failed", err)
		}
		for i := range derived {
			if err := tx.Save(&derived[i]).Error; err != nil {
				s.logError(opReplaceAll, "post_write_failed", err, zap.String("post_id", derived[i].ID))
				return newServiceError(opReplaceAll, "post_write_failed", err)
			}
		}
		if err := rebuildTagIndex(tx); err != nil {
			s.logError(opReplaceAll, "tag_rebuild_failed", err)
			return newServiceError(opReplaceAll, "tag_rebuild_failed", err)
		}
		return nil
	})
}

// MergePosts upserts the incoming raw records by id. An incoming record with
// a known id is shallow-merged over the stored record at the JSON object
// level, so fields the incoming record omits are preserved. Unknown ids
// insert as new posts. The tag index is rebuilt afterwards.
func (s *Service) MergePosts(ctx context.Context, incoming []json.RawMessage) error {
	existing, err := s.ListPosts(ctx)
	if err != nil {
		return newServiceError(opMergePosts, "list_failed", err)
	}
	byID := make(map[string]Post, len(existing))
	for _, post := range existing {
		byID[post.ID] = post
	}

	for _, raw := range incoming {
		var overlay map[string]json.RawMessage
		if err := json.Unmarshal(raw, &overlay); err != nil {
			s.logError(opMergePosts, "decode_failed", err)
			return newServiceError(opMergePosts, "decode_failed", err)
		}

		var id string
		if rawID, ok := overlay["id"]; ok {
			// A malformed id field falls back to empty, which inserts
			// the record under a fresh identifier.
			_ = json.Unmarshal(rawID, &id)
		}

		merged := raw
		if base, ok := byID[id]; ok && id != "" {
			combined, err := mergeJSONObjects(base, overlay)
			if err != nil {
				s.logError(opMergePosts, "merge_failed", err, zap.String("post_id", id))
				return newServiceError(opMergePosts, "merge_failed", err)
			}
			merged = combined
		}

		var post Post
		if err := json.Unmarshal(merged, &post); err != nil {
			s.logError(opMergePosts, "decode_failed", err, zap.String("post_id", id))
			return newServiceError(opMergePosts, "decode_failed", err)
		}
		stored, err := s.PutPost(ctx, post)
		if err != nil {
			return err
		}
		byID[stored.ID] = stored
	}

	if err := s.RebuildTags(ctx); err != nil {
		return newServiceError(opMergePosts, "tag_rebuild_failed", err)
	}
	return nil
}

// mergeJSONObjects overlays the incoming keys onto the stored post's JSON
// encoding, reproducing a spread-style shallow merge.
func mergeJSONObjects(base Post, overlay map[string]json.RawMessage) (json.RawMessage, error) {
	encoded, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return nil, err
	}
	for key, value := range overlay {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// GetSetting returns the stored JSON value for the key. The second result
// reports whether the key was set; an unset key is not an error.
func (s *Service) GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var setting Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		s.logError(opGetSetting, "select_failed", err, zap.String("key", key))
		return nil, false, newServiceError(opGetSetting, "select_failed", err)
	}
	return json.RawMessage(setting.Value), true, nil
}

// SetSetting stores the JSON encoding of value under the key, overwriting
// any previous value. The value is not interpreted.
func (s *Service) SetSetting(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		s.logError(opSetSetting, "encode_failed", err, zap.String("key", key))
		return newServiceError(opSetSetting, "encode_failed", err)
	}
	setting := Setting{Key: key, Value: string(encoded)}
	if err := s.db.WithContext(ctx).Save(&setting).Error; err != nil {
		s.logError(opSetSetting, "save_failed", err, zap.String("key", key))
		return newServiceError(opSetSetting, "save_failed", err)
	}
	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("posts service error", attrs...)
}
