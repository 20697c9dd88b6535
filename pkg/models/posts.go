package models

import (
	"time"
)

// Post represents one listing-posting attempt
type Post struct {
	ID           string `json:"id" db:"id"`
	Address      string `json:"address" db:"address"`
	Suburb       string `json:"suburb" db:"suburb"`
	PropertyType string `json:"property_type" db:"property_type"`
	Price        string `json:"price" db:"price"`
	PriceRange   string `json:"price_range" db:"price_range"`
	Caption      string `json:"caption" db:"caption"`
	AgentID      string `json:"agent_id" db:"agent_id"`

	// Lifecycle
	Status        string     `json:"status" db:"status"`
	RetryCount    int        `json:"retry_count" db:"retry_count"`
	FailureReason *string    `json:"failure_reason,omitempty" db:"failure_reason"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty" db:"scheduled_for"`
	PostedAt      *time.Time `json:"posted_at,omitempty" db:"posted_at"`

	// External platform identifiers, set when the post goes live
	MetaPostID      *string `json:"meta_post_id,omitempty" db:"meta_post_id"`
	FacebookPostID  *string `json:"facebook_post_id,omitempty" db:"facebook_post_id"`
	InstagramPostID *string `json:"instagram_post_id,omitempty" db:"instagram_post_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StatusHistoryEntry is one row of a post's append-only audit trail
type StatusHistoryEntry struct {
	Status    string    `json:"status" db:"status"`
	Actor     string    `json:"actor" db:"actor"`
	Note      string    `json:"note" db:"note"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// PostSummary is the listing view of a post
type PostSummary struct {
	ID        string     `json:"id" db:"id"`
	Address   string     `json:"address" db:"address"`
	Price     string     `json:"price" db:"price"`
	Status    string     `json:"status" db:"status"`
	PostedAt  *time.Time `json:"posted_at,omitempty" db:"posted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// ExternalRefs carries the platform post IDs reported by the posting collaborator
type ExternalRefs struct {
	MetaPostID      string `json:"meta_post_id,omitempty"`
	FacebookPostID  string `json:"facebook_post_id,omitempty"`
	InstagramPostID string `json:"instagram_post_id,omitempty"`
}

// PostStatistics aggregates post counts by status
type PostStatistics struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	FailureRate float64        `json:"failure_rate"`
}
