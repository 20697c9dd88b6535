package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinHellens-SA/real-estate-auto-post/internal/learning"
	"github.com/JustinHellens-SA/real-estate-auto-post/internal/lifecycle"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/kafka"
)

func newTestIngester(t *testing.T) (*Ingester, sqlmock.Sqlmock, *learning.Queue) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	machine := lifecycle.NewMachine(db, logger)
	store := learning.NewStore(db, logger)
	queue := learning.NewQueue(learning.NewLearner(db, logger), logger, 8)
	return NewIngester(machine, store, queue, logger), mock, queue
}

func postedRow(id, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "address", "suburb", "property_type", "price", "price_range", "caption", "agent_id",
		"status", "retry_count", "failure_reason", "scheduled_for", "posted_at",
		"meta_post_id", "facebook_post_id", "instagram_post_id", "created_at", "updated_at",
	}).AddRow(
		id, "12 Compensation Beach Rd", "Ballito", "house", "R2,500,000", "1m_3.5m", "Imagine living here", "agent-1",
		status, 0, nil, nil, now,
		nil, nil, nil, now, now,
	)
}

func event(body string) kafka.Message {
	return kafka.Message{Topic: EngagementTopic, Value: []byte(body)}
}

func TestHandleEventMalformedDropped(t *testing.T) {
	i, mock, _ := newTestIngester(t)

	err := i.HandleEvent(context.Background(), event(`{not json`))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleEventMissingPostIDDropped(t *testing.T) {
	i, mock, _ := newTestIngester(t)

	err := i.HandleEvent(context.Background(), event(`{"likes": 5}`))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleEventUnknownPostDropped(t *testing.T) {
	i, mock, _ := newTestIngester(t)

	mock.ExpectQuery(`SELECT (.+) FROM posts WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := i.HandleEvent(context.Background(), event(`{"post_id": "missing", "likes": 5}`))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleEventUnpostedDropped(t *testing.T) {
	i, mock, _ := newTestIngester(t)

	mock.ExpectQuery(`SELECT (.+) FROM posts WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(postedRow("p1", lifecycle.StatusDraft))

	err := i.HandleEvent(context.Background(), event(`{"post_id": "p1", "likes": 5}`))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleEventRecordsAndEnqueues(t *testing.T) {
	i, mock, queue := newTestIngester(t)

	mock.ExpectQuery(`SELECT (.+) FROM posts WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(postedRow("p1", lifecycle.StatusPosted))
	mock.ExpectExec(`INSERT INTO content_memory`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT (.+) FROM content_memory WHERE post_id = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{
			"post_id", "agent_id", "suburb", "property_type", "price_range",
			"likes", "comments", "shares", "reach", "clicks", "inquiries", "engagement_score",
			"hook_style", "caption_length", "emoji_count", "hashtag_count", "updated_at",
		}).AddRow("p1", "agent-1", "Ballito", "house", "1m_3.5m",
			5, 1, 0, nil, nil, 0, 8.0,
			"lifestyle", 19, 0, 0, time.Now()))

	err := i.HandleEvent(context.Background(), event(`{"post_id": "p1", "likes": 5, "comments": 1}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, queue.Depth())
}
