package learning

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

func newIdleQueue(t *testing.T, size int) *Queue {
	l, _ := newTestLearner(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewQueue(l, logger, size)
}

func TestEnqueueCoalescesDuplicates(t *testing.T) {
	q := newIdleQueue(t, 8)

	q.Enqueue(ballito)
	q.Enqueue(ballito)
	q.Enqueue(ballito)

	assert.Equal(t, 1, len(q.jobs))
}

func TestEnqueueDistinctSegments(t *testing.T) {
	q := newIdleQueue(t, 8)

	q.Enqueue(ballito)
	q.Enqueue(models.Segment{Suburb: "Umhlanga", PropertyType: "apartment", PriceRange: "3.5m_5m"})

	assert.Equal(t, 2, len(q.jobs))
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	q := newIdleQueue(t, 1)

	q.Enqueue(ballito)
	q.Enqueue(models.Segment{Suburb: "Umhlanga", PropertyType: "apartment", PriceRange: "3.5m_5m"})

	assert.Equal(t, 1, len(q.jobs))
}

func TestEnqueueIgnoresEmptySegment(t *testing.T) {
	q := newIdleQueue(t, 8)

	q.Enqueue(models.Segment{})

	assert.Equal(t, 0, len(q.jobs))
}

func TestQueueProcessesJob(t *testing.T) {
	l, mock := newTestLearner(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	q := NewQueue(l, logger, 8)

	// below the sample floor the run is a read-only no-op
	mock.ExpectQuery(`SELECT post_id, engagement_score, hook_style FROM content_memory`).
		WithArgs("Ballito", "house", "1m_3.5m").
		WillReturnRows(memoryRows())

	q.Start()
	q.Enqueue(ballito)

	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)

	q.Stop()
}

func TestQueueRetriesFailedRecompute(t *testing.T) {
	l, mock := newTestLearner(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	q := NewQueue(l, logger, 8)

	// first attempt fails, the retry succeeds
	mock.ExpectQuery(`SELECT post_id, engagement_score, hook_style FROM content_memory`).
		WithArgs("Ballito", "house", "1m_3.5m").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery(`SELECT post_id, engagement_score, hook_style FROM content_memory`).
		WithArgs("Ballito", "house", "1m_3.5m").
		WillReturnRows(memoryRows())

	q.Start()
	q.Enqueue(ballito)

	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 5*time.Second, 50*time.Millisecond)

	q.Stop()
}
