package learning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/logging"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

// ErrNoMemory is returned when a post has no engagement record yet
var ErrNoMemory = errors.New("no engagement record for post")

// minSampleSize is the floor below which a segment produces no insight
const minSampleSize = 3

// minStyleSamples is the floor for a hook style to win a segment
const minStyleSamples = 2

// Learner recomputes the insight row for a segment from its stored
// engagement records. Each segment keeps at most one row; when a hook style
// qualifies the row carries it, otherwise the row is marked segment-only.
type Learner struct {
	db     *sql.DB
	logger logging.Logger
}

// NewLearner creates a pattern learner
func NewLearner(db *sql.DB, logger logging.Logger) *Learner {
	return &Learner{db: db, logger: logger}
}

type styleStats struct {
	total float64
	count int
}

// Recompute rebuilds the insight for one segment. Segments below the
// sample floor are left untouched.
func (l *Learner) Recompute(ctx context.Context, seg models.Segment) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT post_id, engagement_score, hook_style FROM content_memory
		WHERE suburb = $1 AND property_type = $2 AND price_range = $3`,
		seg.Suburb, seg.PropertyType, seg.PriceRange)
	if err != nil {
		return fmt.Errorf("failed to load segment memories: %w", err)
	}
	defer rows.Close()

	var (
		n         int
		total     float64
		bestScore float64
		bestPost  string
		styles    = make(map[string]*styleStats)
	)
	for rows.Next() {
		var postID string
		var score float64
		var style sql.NullString
		if err := rows.Scan(&postID, &score, &style); err != nil {
			return fmt.Errorf("failed to scan memory: %w", err)
		}
		n++
		total += score
		if bestPost == "" || score > bestScore {
			bestScore = score
			bestPost = postID
		}
		if style.Valid && style.String != "" {
			st := styles[style.String]
			if st == nil {
				st = &styleStats{}
				styles[style.String] = st
			}
			st.total += score
			st.count++
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Memories are never deleted, so a segment below the floor has simply
	// not accumulated enough data yet. Leave whatever exists untouched.
	if n < minSampleSize {
		l.logger.WithFields(logging.Fields{
			"suburb":        seg.Suburb,
			"property_type": seg.PropertyType,
			"price_range":   seg.PriceRange,
			"samples":       n,
		}).Debug("Segment below sample floor, skipping")
		return nil
	}

	avg := total / float64(n)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Pick the hook style with the highest average, requiring at least two
	// samples so a single viral post cannot crown a style.
	var winStyle string
	var winAvg float64
	var winCount int
	for style, st := range styles {
		if st.count < minStyleSamples {
			continue
		}
		styleAvg := st.total / float64(st.count)
		if winStyle == "" || styleAvg > winAvg || (styleAvg == winAvg && style < winStyle) {
			winStyle = style
			winAvg = styleAvg
			winCount = st.count
		}
	}

	confidence := confidenceScore(n, avg, winAvg, winCount)
	recommendation := buildRecommendation(seg, winStyle, winAvg, avg)

	// One row per segment: replace any row carrying a different style, then
	// upsert the current one.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM insight_patterns
		WHERE suburb = $1 AND property_type = $2 AND price_range = $3 AND hook_style <> $4`,
		seg.Suburb, seg.PropertyType, seg.PriceRange, winStyle)
	if err != nil {
		return fmt.Errorf("failed to drop stale insight: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO insight_patterns (id, suburb, price_range, property_type, hook_style, segment_only,
			avg_engagement_score, sample_size, best_performing_post_id, recommendation, confidence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (suburb, price_range, property_type, hook_style) DO UPDATE SET
			segment_only = EXCLUDED.segment_only,
			avg_engagement_score = EXCLUDED.avg_engagement_score,
			sample_size = EXCLUDED.sample_size,
			best_performing_post_id = EXCLUDED.best_performing_post_id,
			recommendation = EXCLUDED.recommendation,
			confidence = EXCLUDED.confidence,
			updated_at = NOW()`,
		uuid.New().String(), seg.Suburb, seg.PriceRange, seg.PropertyType, winStyle, winStyle == "",
		avg, n, bestPost, recommendation, confidence)
	if err != nil {
		return fmt.Errorf("failed to upsert insight: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	l.logger.WithFields(logging.Fields{
		"suburb":        seg.Suburb,
		"property_type": seg.PropertyType,
		"price_range":   seg.PriceRange,
		"samples":       n,
		"hook_style":    winStyle,
		"confidence":    confidence,
	}).Info("Segment insight recomputed")
	return nil
}

// confidenceScore blends sample size, style uplift and style consistency
// into a 0..1 score
func confidenceScore(n int, avg, winAvg float64, winCount int) float64 {
	sizeFactor := float64(n) / 10
	if sizeFactor > 1 {
		sizeFactor = 1
	}
	confidence := sizeFactor * 0.5

	if winCount > 0 && winAvg > 1.2*avg {
		confidence += 0.3
	} else {
		confidence += 0.1
	}

	if winCount > 0 {
		confidence += float64(winCount) / float64(n) * 0.2
	}

	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

func buildRecommendation(seg models.Segment, winStyle string, winAvg, avg float64) string {
	if winStyle == "" {
		return fmt.Sprintf("Not enough hook style data for %s %s (%s) yet; keep varying caption styles",
			seg.PropertyType, seg.Suburb, seg.PriceRange)
	}
	return fmt.Sprintf("Use %s hooks for %s listings in %s (%s): avg engagement %.1f vs segment avg %.1f",
		winStyle, seg.PropertyType, seg.Suburb, seg.PriceRange, winAvg, avg)
}
