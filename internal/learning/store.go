// Package learning persists engagement outcomes and distills them into
// per-segment posting insights.
package learning

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JustinHellens-SA/real-estate-auto-post/internal/content"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/logging"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

const memoryColumns = `post_id, agent_id, suburb, property_type, price_range,
	likes, comments, shares, reach, clicks, inquiries, engagement_score,
	hook_style, caption_length, emoji_count, hashtag_count, updated_at`

// Store owns the content_memory table. One row per post; counts are
// overwritten in full and the score is always recomputed from what is stored.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// NewStore creates an engagement store
func NewStore(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// RecordEngagement upserts the full engagement record for a post. The caption
// analysis is captured on first write and refreshed on every update so the
// learner always sees current features.
func (s *Store) RecordEngagement(ctx context.Context, post *models.Post, data models.EngagementData, analysis models.ContentAnalysis) (*models.ContentMemory, error) {
	score := content.Score(data)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_memory (post_id, agent_id, suburb, property_type, price_range,
			likes, comments, shares, reach, clicks, inquiries, engagement_score,
			hook_style, caption_length, emoji_count, hashtag_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		ON CONFLICT (post_id) DO UPDATE SET
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			reach = EXCLUDED.reach,
			clicks = EXCLUDED.clicks,
			inquiries = EXCLUDED.inquiries,
			engagement_score = EXCLUDED.engagement_score,
			hook_style = EXCLUDED.hook_style,
			caption_length = EXCLUDED.caption_length,
			emoji_count = EXCLUDED.emoji_count,
			hashtag_count = EXCLUDED.hashtag_count,
			updated_at = NOW()`,
		post.ID, post.AgentID, post.Suburb, post.PropertyType, post.PriceRange,
		data.Likes, data.Comments, data.Shares, data.Reach, data.Clicks, data.Inquiries, score,
		analysis.HookStyle, analysis.CaptionLength, analysis.EmojiCount, analysis.HashtagCount)
	if err != nil {
		return nil, fmt.Errorf("failed to record engagement: %w", err)
	}

	s.logger.WithFields(logging.Fields{
		"post_id": post.ID,
		"score":   score,
	}).Info("Engagement recorded")

	return s.GetMemory(ctx, post.ID)
}

// PatchEngagement merges the provided counts into the stored row and
// recomputes the score from the merged totals
func (s *Store) PatchEngagement(ctx context.Context, postID string, patch models.EngagementPatchRequest) (*models.ContentMemory, error) {
	return s.mutateEngagement(ctx, postID, func(data *models.EngagementData) {
		if patch.Likes != nil {
			data.Likes = *patch.Likes
		}
		if patch.Comments != nil {
			data.Comments = *patch.Comments
		}
		if patch.Shares != nil {
			data.Shares = *patch.Shares
		}
		if patch.Reach != nil {
			data.Reach = patch.Reach
		}
		if patch.Clicks != nil {
			data.Clicks = patch.Clicks
		}
		if patch.Inquiries != nil {
			data.Inquiries = *patch.Inquiries
		}
	})
}

// RecordInquiry bumps the inquiry count by one and rescores. Inquiries
// arrive one at a time from the contact form, unlike the batched platform
// counts.
func (s *Store) RecordInquiry(ctx context.Context, postID string) (*models.ContentMemory, error) {
	return s.mutateEngagement(ctx, postID, func(data *models.EngagementData) {
		data.Inquiries++
	})
}

// mutateEngagement applies fn to the stored counts under a row lock and
// recomputes the score from the result
func (s *Store) mutateEngagement(ctx context.Context, postID string, fn func(*models.EngagementData)) (*models.ContentMemory, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var data models.EngagementData
	var reach, clicks sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT likes, comments, shares, reach, clicks, inquiries
		FROM content_memory WHERE post_id = $1 FOR UPDATE`, postID).
		Scan(&data.Likes, &data.Comments, &data.Shares, &reach, &clicks, &data.Inquiries)
	if err == sql.ErrNoRows {
		return nil, ErrNoMemory
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock memory: %w", err)
	}
	if reach.Valid {
		v := int(reach.Int64)
		data.Reach = &v
	}
	if clicks.Valid {
		v := int(clicks.Int64)
		data.Clicks = &v
	}

	fn(&data)

	score := content.Score(data)
	_, err = tx.ExecContext(ctx, `
		UPDATE content_memory SET likes = $1, comments = $2, shares = $3,
			reach = $4, clicks = $5, inquiries = $6, engagement_score = $7, updated_at = NOW()
		WHERE post_id = $8`,
		data.Likes, data.Comments, data.Shares, data.Reach, data.Clicks, data.Inquiries, score, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to update engagement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return s.GetMemory(ctx, postID)
}

// GetMemory fetches the engagement record for a post
func (s *Store) GetMemory(ctx context.Context, postID string) (*models.ContentMemory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM content_memory WHERE post_id = $1`, postID)

	var m models.ContentMemory
	err := row.Scan(
		&m.PostID, &m.AgentID, &m.Suburb, &m.PropertyType, &m.PriceRange,
		&m.Likes, &m.Comments, &m.Shares, &m.Reach, &m.Clicks, &m.Inquiries, &m.EngagementScore,
		&m.HookStyle, &m.CaptionLength, &m.EmojiCount, &m.HashtagCount, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoMemory
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch memory: %w", err)
	}
	return &m, nil
}
