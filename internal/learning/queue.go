package learning

import (
	"context"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/logging"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

const recomputeTimeout = 30 * time.Second

// Queue serializes segment recomputes through a single worker. Duplicate
// jobs for a segment already waiting are coalesced, and a full queue drops
// the job rather than blocking the caller; the next engagement write for
// that segment re-enqueues it.
type Queue struct {
	learner *Learner
	logger  logging.Logger
	retry   retrypolicy.RetryPolicy[any]

	jobs    chan models.Segment
	mu      sync.Mutex
	pending map[string]struct{}

	stop chan struct{}
	done chan struct{}

	runs     *prometheus.CounterVec
	depth    *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewQueue creates a recompute queue with the given buffer size
func NewQueue(learner *Learner, logger logging.Logger, size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{
		learner: learner,
		logger:  logger,
		retry: retrypolicy.NewBuilder[any]().
			WithBackoff(time.Second, 10*time.Second).
			WithMaxRetries(3).
			Build(),
		jobs:    make(chan models.Segment, size),
		pending: make(map[string]struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// SetMetrics wires learner run metrics
func (q *Queue) SetMetrics(runs *prometheus.CounterVec, depth *prometheus.GaugeVec, duration *prometheus.HistogramVec) {
	q.runs = runs
	q.depth = depth
	q.duration = duration
}

// Enqueue schedules a recompute for the segment. Safe to call from request
// handlers; never blocks.
func (q *Queue) Enqueue(seg models.Segment) {
	if seg.IsZero() {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	key := seg.Key()
	if _, waiting := q.pending[key]; waiting {
		return
	}

	select {
	case q.jobs <- seg:
		q.pending[key] = struct{}{}
		if q.depth != nil {
			q.depth.WithLabelValues("recompute").Set(float64(len(q.jobs)))
		}
	default:
		q.logger.WithFields(logging.Fields{
			"suburb":        seg.Suburb,
			"property_type": seg.PropertyType,
			"price_range":   seg.PriceRange,
		}).Warn("Recompute queue full, dropping job")
		if q.runs != nil {
			q.runs.WithLabelValues("dropped").Inc()
		}
	}
}

// Depth reports how many jobs are waiting
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Start launches the worker goroutine
func (q *Queue) Start() {
	go q.worker()
}

// Stop signals the worker and waits for the in-flight job to finish
func (q *Queue) Stop() {
	close(q.stop)
	<-q.done
}

func (q *Queue) worker() {
	defer close(q.done)
	for {
		select {
		case <-q.stop:
			return
		case seg := <-q.jobs:
			q.mu.Lock()
			delete(q.pending, seg.Key())
			if q.depth != nil {
				q.depth.WithLabelValues("recompute").Set(float64(len(q.jobs)))
			}
			q.mu.Unlock()
			q.run(seg)
		}
	}
}

// run executes one recompute with retries. Failures are logged and dropped;
// the next engagement write for the segment triggers a fresh attempt.
func (q *Queue) run(seg models.Segment) {
	start := time.Now()
	err := failsafe.With(q.retry).Run(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
		defer cancel()
		return q.learner.Recompute(ctx, seg)
	})

	if q.duration != nil {
		q.duration.WithLabelValues().Observe(time.Since(start).Seconds())
	}

	if err != nil {
		if q.runs != nil {
			q.runs.WithLabelValues("error").Inc()
		}
		q.logger.WithError(err).WithFields(logging.Fields{
			"suburb":        seg.Suburb,
			"property_type": seg.PropertyType,
			"price_range":   seg.PriceRange,
		}).Error("Segment recompute failed")
		return
	}
	if q.runs != nil {
		q.runs.WithLabelValues("ok").Inc()
	}
}
