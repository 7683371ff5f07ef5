package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/newsdeskhq/content-scheduler/internal/core"
	"github.com/newsdeskhq/content-scheduler/internal/kv"
)

// actionHandlers is the closed dispatch table mapping each schedule action to
// its content mutation. Validation upstream guarantees membership; an unknown
// action reaching Apply is a programming error.
var actionHandlers = map[string]func(item *core.ContentItem, now time.Time){
	core.ActionPublish: func(item *core.ContentItem, now time.Time) {
		item.Status = core.ContentPublished
		if item.PublishedAt == "" {
			item.PublishedAt = core.FormatTime(now)
		}
	},
	core.ActionUnpublish: func(item *core.ContentItem, now time.Time) {
		item.Status = core.ContentDraft
	},
	core.ActionArchive: func(item *core.ContentItem, now time.Time) {
		item.Status = core.ContentArchived
		item.ArchivedAt = core.FormatTime(now)
	},
}

// ContentBackend implements core.ContentStore and core.ContentRepository on
// the sched-content KV bucket. It is the reference implementation of the
// engine's external content collaborator.
type ContentBackend struct {
	items *kv.Store
}

// NewContentBackend wraps the backend's content bucket.
func NewContentBackend(b *Backend) *ContentBackend {
	return &ContentBackend{items: b.content}
}

// Apply performs the status mutation for one (contentType, action) pair.
// The write is a CAS retried a few times so a concurrent editor save is not
// overwritten blindly.
func (c *ContentBackend) Apply(ctx context.Context, contentType, contentID, action string, now time.Time) error {
	handler, ok := actionHandlers[action]
	if !ok {
		return core.NewInternalError(fmt.Sprintf("no handler for action %q", action))
	}

	key := ContentKey(contentType, contentID)
	for attempt := 0; attempt < 3; attempt++ {
		var item core.ContentItem
		rev, err := c.items.GetJSON(ctx, key, &item)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				return core.NewContentNotFoundError(contentType, contentID)
			}
			return fmt.Errorf("get content %s: %w", key, err)
		}

		handler(&item, now)
		item.UpdatedAt = core.FormatTime(now)

		_, err = c.items.UpdateJSON(ctx, key, &item, rev)
		if err == nil {
			return nil
		}
		if !isRevisionMismatch(err) {
			return fmt.Errorf("update content %s: %w", key, err)
		}
		// Revision conflict: re-read and retry.
	}
	return core.NewExecutionError(fmt.Sprintf("content %s kept changing under the mutation", key))
}

// PutContent creates or replaces a content item. New items default to draft.
func (c *ContentBackend) PutContent(ctx context.Context, item *core.ContentItem) error {
	if !core.IsValidContentType(item.Type) {
		return core.NewValidationError(fmt.Sprintf("Unknown content_type %q.", item.Type), map[string]any{
			"field": "type", "allowed": core.ContentTypes,
		})
	}
	if item.ID == "" {
		return core.NewValidationError("Field 'id' is required.", map[string]any{"field": "id"})
	}
	if item.Status == "" {
		item.Status = core.ContentDraft
	}
	if item.UpdatedAt == "" {
		item.UpdatedAt = core.NowFormatted()
	}
	if _, err := c.items.PutJSON(ctx, ContentKey(item.Type, item.ID), item); err != nil {
		return fmt.Errorf("store content %s/%s: %w", item.Type, item.ID, err)
	}
	return nil
}

// GetContent retrieves a content item.
func (c *ContentBackend) GetContent(ctx context.Context, contentType, contentID string) (*core.ContentItem, error) {
	var item core.ContentItem
	if _, err := c.items.GetJSON(ctx, ContentKey(contentType, contentID), &item); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, core.NewContentNotFoundError(contentType, contentID)
		}
		return nil, fmt.Errorf("get content %s/%s: %w", contentType, contentID, err)
	}
	return &item, nil
}
