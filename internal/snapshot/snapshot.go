// Package snapshot implements the portable export/import envelope for the
// full record set, including embedded image payloads.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/trickz/backend/internal/posts"
)

const (
	// AppMarker identifies an export produced by this application.
	AppMarker = "cs2-trickz"
	// FormatVersion is the current envelope version.
	FormatVersion = 1

	// StrategyMerge upserts imported posts by id into the existing store.
	StrategyMerge = "merge"
	// StrategyReplace truncates the store before loading.
	StrategyReplace = "replace"
)

// Confirmation reasons surfaced to the caller before a permissive import
// proceeds.
const (
	ReasonAppMismatch    = "app_mismatch"
	ReasonUnknownVersion = "unknown_version"
	ReasonNoPosts        = "no_posts"
)

// ErrMalformedPayload indicates the import payload is not valid JSON or not
// an object. The store is left untouched.
var ErrMalformedPayload = errors.New("snapshot: malformed payload")

// ErrUnknownStrategy indicates an unrecognized import strategy token.
var ErrUnknownStrategy = errors.New("snapshot: unknown import strategy")

// ConfirmationError reports that a permissive check tripped and the caller
// declined (or was never asked) to proceed.
type ConfirmationError struct {
	Reason string
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("snapshot: import requires confirmation: %s", e.Reason)
}

// Envelope is the exported snapshot shape.
type Envelope struct {
	App        string                     `json:"app"`
	Version    int                        `json:"version"`
	ExportedAt string                     `json:"exportedAt"`
	Posts      []posts.Post               `json:"posts"`
	Settings   map[string]json.RawMessage `json:"settings"`
}

// Export builds a snapshot of every stored post.
func Export(ctx context.Context, store *posts.Service, now time.Time) (Envelope, error) {
	all, err := store.ExportPosts(ctx)
	if err != nil {
		return Envelope{}, err
	}
	if all == nil {
		all = []posts.Post{}
	}
	return Envelope{
		App:        AppMarker,
		Version:    FormatVersion,
		ExportedAt: now.UTC().Format(time.RFC3339Nano),
		Posts:      all,
		Settings:   map[string]json.RawMessage{},
	}, nil
}

// FileName returns the suggested download name for an export taken at the
// given time.
func FileName(now time.Time) string {
	return fmt.Sprintf("CS2Trickz-%s.json", now.Format("20060102"))
}

// ImportOptions controls an import run. A nil Confirm declines every
// confirmation request.
type ImportOptions struct {
	Strategy string
	Confirm  func(reason string) bool
}

// ImportReport summarizes a completed import.
type ImportReport struct {
	Imported int    `json:"imported"`
	Strategy string `json:"strategy"`
}

// looseEnvelope tolerates foreign or future payloads: the permissive checks
// inspect the markers without failing the decode.
type looseEnvelope struct {
	App     any               `json:"app"`
	Version any               `json:"version"`
	Posts   []json.RawMessage `json:"posts"`
}

// Import loads a snapshot payload with the chosen strategy. Marker
// mismatches, unknown versions and empty post lists route through the
// Confirm hook; a decline aborts with ConfirmationError and no store change.
func Import(ctx context.Context, store *posts.Service, payload []byte, opts ImportOptions) (ImportReport, error) {
	strategy := strings.TrimSpace(opts.Strategy)
	if strategy == "" {
		strategy = StrategyMerge
	}
	if strategy != StrategyMerge && strategy != StrategyReplace {
		return ImportReport{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, opts.Strategy)
	}

	var envelope looseEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ImportReport{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if app, _ := envelope.App.(string); app != AppMarker {
		if !confirm(opts, ReasonAppMismatch) {
			return ImportReport{}, &ConfirmationError{Reason: ReasonAppMismatch}
		}
	}
	if version, ok := envelope.Version.(float64); !ok || version < 1 {
		if !confirm(opts, ReasonUnknownVersion) {
			return ImportReport{}, &ConfirmationError{Reason: ReasonUnknownVersion}
		}
	}
	if len(envelope.Posts) == 0 {
		if !confirm(opts, ReasonNoPosts) {
			return ImportReport{}, &ConfirmationError{Reason: ReasonNoPosts}
		}
	}

	switch strategy {
	case StrategyReplace:
		records := make([]posts.Post, 0, len(envelope.Posts))
		for _, raw := range envelope.Posts {
			var post posts.Post
			if err := json.Unmarshal(raw, &post); err != nil {
				return ImportReport{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
			}
			records = append(records, post)
		}
		if err := store.ReplaceAllPosts(ctx, records); err != nil {
			return ImportReport{}, err
		}
	case StrategyMerge:
		if err := store.MergePosts(ctx, envelope.Posts); err != nil {
			return ImportReport{}, err
		}
	}

	return ImportReport{Imported: len(envelope.Posts), Strategy: strategy}, nil
}

func confirm(opts ImportOptions, reason string) bool {
	if opts.Confirm == nil {
		return false
	}
	return opts.Confirm(reason)
}
