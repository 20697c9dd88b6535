package models

import (
	"time"
)

// EngagementData holds raw interaction counts for a post
type EngagementData struct {
	Likes     int  `json:"likes"`
	Comments  int  `json:"comments"`
	Shares    int  `json:"shares"`
	Reach     *int `json:"reach,omitempty"`
	Clicks    *int `json:"clicks,omitempty"`
	Inquiries int  `json:"inquiries"`
}

// ContentAnalysis holds derived caption features
type ContentAnalysis struct {
	HookStyle     string `json:"hook_style,omitempty"`
	CaptionLength int    `json:"caption_length"`
	EmojiCount    int    `json:"emoji_count"`
	HashtagCount  int    `json:"hashtag_count"`
}

// ContentMemory is the scored, classified performance record for a post (1:1)
type ContentMemory struct {
	PostID       string `json:"post_id" db:"post_id"`
	AgentID      string `json:"agent_id" db:"agent_id"`
	Suburb       string `json:"suburb" db:"suburb"`
	PropertyType string `json:"property_type" db:"property_type"`
	PriceRange   string `json:"price_range" db:"price_range"`

	Likes     int  `json:"likes" db:"likes"`
	Comments  int  `json:"comments" db:"comments"`
	Shares    int  `json:"shares" db:"shares"`
	Reach     *int `json:"reach,omitempty" db:"reach"`
	Clicks    *int `json:"clicks,omitempty" db:"clicks"`
	Inquiries int  `json:"inquiries" db:"inquiries"`

	EngagementScore float64 `json:"engagement_score" db:"engagement_score"`

	HookStyle     *string `json:"hook_style,omitempty" db:"hook_style"`
	CaptionLength *int    `json:"caption_length,omitempty" db:"caption_length"`
	EmojiCount    *int    `json:"emoji_count,omitempty" db:"emoji_count"`
	HashtagCount  *int    `json:"hashtag_count,omitempty" db:"hashtag_count"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Segment identifies the grouping used for pattern learning
type Segment struct {
	Suburb       string `json:"suburb"`
	PropertyType string `json:"property_type"`
	PriceRange   string `json:"price_range"`
}

// Key returns a stable identity for queue coalescing
func (s Segment) Key() string {
	return s.Suburb + "|" + s.PropertyType + "|" + s.PriceRange
}

// IsZero reports whether every dimension is absent
func (s Segment) IsZero() bool {
	return s.Suburb == "" && s.PropertyType == "" && s.PriceRange == ""
}

// InsightPattern is the aggregate learning row for a segment
type InsightPattern struct {
	ID           string `json:"id" db:"id"`
	Suburb       string `json:"suburb" db:"suburb"`
	PriceRange   string `json:"price_range" db:"price_range"`
	PropertyType string `json:"property_type" db:"property_type"`

	// HookStyle is empty when no style qualified; SegmentOnly marks that case
	// explicitly so segment-level rows never collide with style rows.
	HookStyle   string `json:"hook_style,omitempty" db:"hook_style"`
	SegmentOnly bool   `json:"segment_only" db:"segment_only"`

	AvgEngagementScore   float64   `json:"avg_engagement_score" db:"avg_engagement_score"`
	SampleSize           int       `json:"sample_size" db:"sample_size"`
	BestPerformingPostID *string   `json:"best_performing_post_id,omitempty" db:"best_performing_post_id"`
	Recommendation       string    `json:"recommendation" db:"recommendation"`
	Confidence           float64   `json:"confidence" db:"confidence"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// TopPerformer is a denormalized view of an agent's best post
type TopPerformer struct {
	PostID          string  `json:"post_id"`
	Address         string  `json:"address"`
	Suburb          string  `json:"suburb"`
	HookStyle       *string `json:"hook_style,omitempty"`
	EngagementScore float64 `json:"engagement_score"`
}

// AgentPerformance aggregates an agent's content memory rows
type AgentPerformance struct {
	AgentID       string        `json:"agent_id"`
	TotalPosts    int           `json:"total_posts"`
	AvgEngagement float64       `json:"avg_engagement"`
	TopPerformer  *TopPerformer `json:"top_performer,omitempty"`
}

// ContentInsights is the guidance served to the caption-generation collaborator
type ContentInsights struct {
	TopPerformingHookStyle string  `json:"top_performing_hook_style,omitempty"`
	AvgEngagementForArea   float64 `json:"avg_engagement_for_area"`
	Recommendation         string  `json:"recommendation,omitempty"`
	ColdStart              bool    `json:"cold_start"`
}

// InsightsOverview is the stats block returned alongside top insights
type InsightsOverview struct {
	TotalPosted   int     `json:"total_posted"`
	TotalMemories int     `json:"total_memories"`
	AvgEngagement float64 `json:"avg_engagement"`
}
