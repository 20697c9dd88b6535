package models

import (
	"time"
)

// CreatePostRequest creates a new DRAFT post
type CreatePostRequest struct {
	Address      string `json:"address"`
	Suburb       string `json:"suburb"`
	PropertyType string `json:"property_type"`
	Price        string `json:"price"`
	Caption      string `json:"caption"`
	AgentID      string `json:"agent_id"`
}

// TransitionRequest moves a post to a new status
type TransitionRequest struct {
	ToStatus string `json:"to_status" binding:"required"`
	Actor    string `json:"actor"`
	Note     string `json:"note"`
}

// FailRequest marks a post FAILED
type FailRequest struct {
	Reason string `json:"reason" binding:"required"`
	Actor  string `json:"actor"`
}

// RetryRequest re-queues a FAILED post
type RetryRequest struct {
	Actor string `json:"actor"`
}

// ScheduleRequest schedules a post for future publishing
type ScheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
	Actor        string    `json:"actor"`
}

// MarkPostedRequest records external platform identifiers on success
type MarkPostedRequest struct {
	MetaPostID      string `json:"meta_post_id"`
	FacebookPostID  string `json:"facebook_post_id"`
	InstagramPostID string `json:"instagram_post_id"`
}

// EngagementRequest records raw interaction counts for a post
type EngagementRequest struct {
	Likes     int  `json:"likes"`
	Comments  int  `json:"comments"`
	Shares    int  `json:"shares"`
	Reach     *int `json:"reach,omitempty"`
	Clicks    *int `json:"clicks,omitempty"`
	Inquiries *int `json:"inquiries,omitempty"`
}

// EngagementPatchRequest updates a subset of stored interaction counts.
// Absent fields keep their stored values.
type EngagementPatchRequest struct {
	Likes     *int `json:"likes,omitempty"`
	Comments  *int `json:"comments,omitempty"`
	Shares    *int `json:"shares,omitempty"`
	Reach     *int `json:"reach,omitempty"`
	Clicks    *int `json:"clicks,omitempty"`
	Inquiries *int `json:"inquiries,omitempty"`
}

// EngagementEvent is the Kafka message shape on the engagement_events topic
type EngagementEvent struct {
	PostID    string    `json:"post_id"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Shares    int       `json:"shares"`
	Reach     *int      `json:"reach,omitempty"`
	Clicks    *int      `json:"clicks,omitempty"`
	Inquiries *int      `json:"inquiries,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
