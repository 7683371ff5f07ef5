package core

import "encoding/json"

// Content item statuses.
const (
	ContentDraft     = "draft"
	ContentPublished = "published"
	ContentArchived  = "archived"
)

// ContentItem is a content record as the engine sees it: identity plus the
// status fields the schedule actions mutate. Everything else about a content
// item belongs to the surrounding CMS.
type ContentItem struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Title       string          `json:"title,omitempty"`
	Status      string          `json:"status"`
	PublishedAt string          `json:"published_at,omitempty"`
	ArchivedAt  string          `json:"archived_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
	Meta        json.RawMessage `json:"meta,omitempty"`
}
