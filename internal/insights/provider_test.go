package insights

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

func newTestProvider(t *testing.T) (*Provider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewProvider(db, logger), mock
}

var ballito = models.Segment{Suburb: "Ballito", PropertyType: "house", PriceRange: "1m_3.5m"}

func TestTopInsights(t *testing.T) {
	p, mock := newTestProvider(t)

	mock.ExpectQuery(`SELECT (.+) FROM insight_patterns WHERE confidence >= \$1`).
		WithArgs(0.5, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "suburb", "price_range", "property_type", "hook_style", "segment_only",
			"avg_engagement_score", "sample_size", "best_performing_post_id", "recommendation", "confidence", "updated_at",
		}).
			AddRow("i1", "Ballito", "1m_3.5m", "house", "lifestyle", false, 120.0, 5, "p3", "Use lifestyle hooks", 0.8, time.Now()).
			AddRow("i2", "Umhlanga", "3.5m_5m", "apartment", "investment", false, 90.0, 4, "p7", "Use investment hooks", 0.6, time.Now()))

	patterns, err := p.TopInsights(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "lifestyle", patterns[0].HookStyle)
	assert.GreaterOrEqual(t, patterns[0].Confidence, patterns[1].Confidence)
}

func TestTopInsightsServedFromCache(t *testing.T) {
	p, mock := newTestProvider(t)

	mock.ExpectQuery(`SELECT (.+) FROM insight_patterns WHERE confidence >= \$1`).
		WithArgs(0.5, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "suburb", "price_range", "property_type", "hook_style", "segment_only",
			"avg_engagement_score", "sample_size", "best_performing_post_id", "recommendation", "confidence", "updated_at",
		}))

	_, err := p.TopInsights(context.Background(), 10)
	require.NoError(t, err)

	// second call must not hit the database
	_, err = p.TopInsights(context.Background(), 10)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverview(t *testing.T) {
	p, mock := newTestProvider(t)

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows([]string{"posted", "memories", "avg"}).AddRow(12, 10, 84.5))

	o, err := p.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, o.TotalPosted)
	assert.Equal(t, 10, o.TotalMemories)
	assert.InDelta(t, 84.5, o.AvgEngagement, 1e-9)
}

func TestAgentPerformance(t *testing.T) {
	p, mock := newTestProvider(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(engagement_score\), 0\)`).
		WithArgs("agent-1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(4, 75.0))
	mock.ExpectQuery(`SELECT cm.post_id, p.address`).
		WithArgs("agent-1").
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "address", "suburb", "hook_style", "engagement_score"}).
			AddRow("p3", "12 Compensation Beach Rd", "Ballito", "lifestyle", 140.0))

	perf, err := p.AgentPerformance(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 4, perf.TotalPosts)
	require.NotNil(t, perf.TopPerformer)
	assert.Equal(t, "p3", perf.TopPerformer.PostID)
}

func TestAgentPerformanceNoPosts(t *testing.T) {
	p, mock := newTestProvider(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(engagement_score\), 0\)`).
		WithArgs("agent-2").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(0, 0.0))

	perf, err := p.AgentPerformance(context.Background(), "agent-2")
	require.NoError(t, err)
	assert.Equal(t, 0, perf.TotalPosts)
	assert.Nil(t, perf.TopPerformer)
}

func TestContentInsightsFromPattern(t *testing.T) {
	p, mock := newTestProvider(t)

	mock.ExpectQuery(`SELECT hook_style, segment_only, avg_engagement_score, recommendation FROM insight_patterns (.+) ORDER BY confidence DESC LIMIT 1`).
		WithArgs("Ballito", "house", "1m_3.5m").
		WillReturnRows(sqlmock.NewRows([]string{"hook_style", "segment_only", "avg_engagement_score", "recommendation"}).
			AddRow("lifestyle", false, 120.0, "Use lifestyle hooks"))

	ci, err := p.ContentInsights(context.Background(), ballito)
	require.NoError(t, err)
	assert.Equal(t, "lifestyle", ci.TopPerformingHookStyle)
	assert.False(t, ci.ColdStart)
}

func TestContentInsightsSegmentOnlyPatternHidesStyle(t *testing.T) {
	p, mock := newTestProvider(t)

	mock.ExpectQuery(`SELECT hook_style, segment_only, avg_engagement_score, recommendation FROM insight_patterns`).
		WithArgs("Ballito", "house", "1m_3.5m").
		WillReturnRows(sqlmock.NewRows([]string{"hook_style", "segment_only", "avg_engagement_score", "recommendation"}).
			AddRow("", true, 95.0, "Keep varying caption styles"))

	ci, err := p.ContentInsights(context.Background(), ballito)
	require.NoError(t, err)
	assert.Empty(t, ci.TopPerformingHookStyle)
	assert.InDelta(t, 95.0, ci.AvgEngagementForArea, 1e-9)
}

func TestContentInsightsColdStartFallback(t *testing.T) {
	p, mock := newTestProvider(t)

	mock.ExpectQuery(`SELECT hook_style, segment_only, avg_engagement_score, recommendation FROM insight_patterns`).
		WithArgs("Ballito", "house", "1m_3.5m").
		WillReturnRows(sqlmock.NewRows([]string{"hook_style", "segment_only", "avg_engagement_score", "recommendation"}))
	mock.ExpectQuery(`SELECT hook_style, engagement_score FROM content_memory`).
		WithArgs("Ballito", 5).
		WillReturnRows(sqlmock.NewRows([]string{"hook_style", "engagement_score"}).
			AddRow("question", 90.0).
			AddRow("lifestyle", 60.0))

	ci, err := p.ContentInsights(context.Background(), ballito)
	require.NoError(t, err)
	assert.True(t, ci.ColdStart)
	assert.Equal(t, "question", ci.TopPerformingHookStyle)
	assert.InDelta(t, 75.0, ci.AvgEngagementForArea, 1e-9)
	assert.Equal(t, "In Ballito, question hooks have performed well recently", ci.Recommendation)
}

func TestContentInsightsNoDataAtAll(t *testing.T) {
	p, mock := newTestProvider(t)

	mock.ExpectQuery(`SELECT hook_style, segment_only, avg_engagement_score, recommendation FROM insight_patterns`).
		WithArgs("Empty", "house", "under_1m").
		WillReturnRows(sqlmock.NewRows([]string{"hook_style", "segment_only", "avg_engagement_score", "recommendation"}))
	mock.ExpectQuery(`SELECT hook_style, engagement_score FROM content_memory`).
		WithArgs("Empty", 5).
		WillReturnRows(sqlmock.NewRows([]string{"hook_style", "engagement_score"}))

	ci, err := p.ContentInsights(context.Background(), models.Segment{Suburb: "Empty", PropertyType: "house", PriceRange: "under_1m"})
	require.NoError(t, err)
	assert.True(t, ci.ColdStart)
	assert.Zero(t, ci.AvgEngagementForArea)
	assert.Empty(t, ci.TopPerformingHookStyle)
}
