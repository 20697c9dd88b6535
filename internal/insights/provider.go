// Package insights serves the read side of the learning loop: ranked
// segment patterns, per-agent rollups and caption guidance.
package insights

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/cache"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/logging"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

// minConfidence filters noise out of the top insights listing
const minConfidence = 0.5

// defaultInsightsLimit caps the ranked listing when no limit is given
const defaultInsightsLimit = 10

// maxInsightsLimit is the hard ceiling for a caller-supplied limit
const maxInsightsLimit = 50

// coldStartSampleLimit bounds the suburb fallback when no pattern exists yet
const coldStartSampleLimit = 5

// Provider reads insight patterns and engagement memories. Hot reads go
// through a short-TTL cache since insights only move when the learner runs.
type Provider struct {
	db     *sql.DB
	logger logging.Logger
	cache  *cache.Cache
}

// NewProvider creates an insight provider
func NewProvider(db *sql.DB, logger logging.Logger) *Provider {
	return &Provider{
		db:     db,
		logger: logger,
		cache: cache.New(cache.Options{
			TTL:                  30 * time.Second,
			StaleWhileRevalidate: 30 * time.Second,
			MaxEntries:           1024,
		}, cache.MetricsHooks{}),
	}
}

// TopInsights returns the highest-confidence patterns across all segments
func (p *Provider) TopInsights(ctx context.Context, limit int) ([]models.InsightPattern, error) {
	if limit <= 0 || limit > maxInsightsLimit {
		limit = defaultInsightsLimit
	}

	key := fmt.Sprintf("top_insights:%d", limit)
	v, ok, err := p.cache.Get(ctx, key, func(ctx context.Context, _ string) (interface{}, bool, error) {
		patterns, err := p.loadTopInsights(ctx, limit)
		if err != nil {
			return nil, false, err
		}
		return patterns, true, nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return v.([]models.InsightPattern), nil
}

func (p *Provider) loadTopInsights(ctx context.Context, limit int) ([]models.InsightPattern, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, suburb, price_range, property_type, hook_style, segment_only,
			avg_engagement_score, sample_size, best_performing_post_id, recommendation, confidence, updated_at
		FROM insight_patterns
		WHERE confidence >= $1
		ORDER BY confidence DESC, avg_engagement_score DESC
		LIMIT $2`,
		minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch insights: %w", err)
	}
	defer rows.Close()

	patterns := []models.InsightPattern{}
	for rows.Next() {
		var ip models.InsightPattern
		err := rows.Scan(&ip.ID, &ip.Suburb, &ip.PriceRange, &ip.PropertyType, &ip.HookStyle, &ip.SegmentOnly,
			&ip.AvgEngagementScore, &ip.SampleSize, &ip.BestPerformingPostID, &ip.Recommendation, &ip.Confidence, &ip.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		patterns = append(patterns, ip)
	}
	return patterns, rows.Err()
}

// Overview summarizes the learning corpus
func (p *Provider) Overview(ctx context.Context) (*models.InsightsOverview, error) {
	var o models.InsightsOverview
	err := p.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM posts WHERE status = 'POSTED'),
			COUNT(*),
			COALESCE(AVG(engagement_score), 0)
		FROM content_memory`).
		Scan(&o.TotalPosted, &o.TotalMemories, &o.AvgEngagement)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch overview: %w", err)
	}
	return &o, nil
}

// AgentPerformance rolls up an agent's engagement history
func (p *Provider) AgentPerformance(ctx context.Context, agentID string) (*models.AgentPerformance, error) {
	perf := &models.AgentPerformance{AgentID: agentID}
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(engagement_score), 0)
		FROM content_memory WHERE agent_id = $1`, agentID).
		Scan(&perf.TotalPosts, &perf.AvgEngagement)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent performance: %w", err)
	}

	if perf.TotalPosts == 0 {
		return perf, nil
	}

	var top models.TopPerformer
	err = p.db.QueryRowContext(ctx, `
		SELECT cm.post_id, p.address, cm.suburb, cm.hook_style, cm.engagement_score
		FROM content_memory cm
		JOIN posts p ON p.id = cm.post_id
		WHERE cm.agent_id = $1
		ORDER BY cm.engagement_score DESC
		LIMIT 1`, agentID).
		Scan(&top.PostID, &top.Address, &top.Suburb, &top.HookStyle, &top.EngagementScore)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to fetch top performer: %w", err)
	}
	if err == nil {
		perf.TopPerformer = &top
	}
	return perf, nil
}

// ContentInsights returns caption guidance for a segment. When the learner
// has no pattern yet it falls back to the suburb's strongest memories so a
// new segment still gets something useful.
func (p *Provider) ContentInsights(ctx context.Context, seg models.Segment) (*models.ContentInsights, error) {
	key := "content:" + seg.Key()
	v, ok, err := p.cache.Get(ctx, key, func(ctx context.Context, _ string) (interface{}, bool, error) {
		ci, err := p.loadContentInsights(ctx, seg)
		if err != nil {
			return nil, false, err
		}
		return ci, true, nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return v.(*models.ContentInsights), nil
}

func (p *Provider) loadContentInsights(ctx context.Context, seg models.Segment) (*models.ContentInsights, error) {
	var (
		hookStyle      string
		segmentOnly    bool
		avg            float64
		recommendation string
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT hook_style, segment_only, avg_engagement_score, recommendation
		FROM insight_patterns
		WHERE suburb = $1 AND property_type = $2 AND price_range = $3
		ORDER BY confidence DESC
		LIMIT 1`,
		seg.Suburb, seg.PropertyType, seg.PriceRange).
		Scan(&hookStyle, &segmentOnly, &avg, &recommendation)
	if err == nil {
		ci := &models.ContentInsights{
			AvgEngagementForArea: avg,
			Recommendation:       recommendation,
		}
		if !segmentOnly {
			ci.TopPerformingHookStyle = hookStyle
		}
		return ci, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to fetch content insight: %w", err)
	}

	return p.coldStartInsights(ctx, seg.Suburb)
}

// coldStartInsights samples the suburb's best memories when no learned
// pattern covers the segment yet
func (p *Provider) coldStartInsights(ctx context.Context, suburb string) (*models.ContentInsights, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT hook_style, engagement_score FROM content_memory
		WHERE suburb = $1
		ORDER BY engagement_score DESC
		LIMIT $2`, suburb, coldStartSampleLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch suburb memories: %w", err)
	}
	defer rows.Close()

	ci := &models.ContentInsights{ColdStart: true}
	var total float64
	var n int
	for rows.Next() {
		var style sql.NullString
		var score float64
		if err := rows.Scan(&style, &score); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		if n == 0 && style.Valid {
			ci.TopPerformingHookStyle = style.String
		}
		total += score
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if n > 0 {
		ci.AvgEngagementForArea = total / float64(n)
	}
	if ci.TopPerformingHookStyle != "" {
		ci.Recommendation = fmt.Sprintf("In %s, %s hooks have performed well recently", suburb, ci.TopPerformingHookStyle)
	}
	return ci, nil
}
