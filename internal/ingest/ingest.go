// Package ingest consumes engagement events from Kafka so platform webhooks
// can feed the learning loop without hitting the HTTP API.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JustinHellens-SA/real-estate-auto-post/internal/content"
	"github.com/JustinHellens-SA/real-estate-auto-post/internal/learning"
	"github.com/JustinHellens-SA/real-estate-auto-post/internal/lifecycle"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/kafka"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/logging"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

// EngagementTopic is the topic carrying engagement count snapshots
const EngagementTopic = "engagement_events"

// Ingester turns engagement events into content memory writes and recompute
// jobs. Malformed events and events for unknown or unposted posts are
// dropped; only persistence failures propagate so the partition retries.
type Ingester struct {
	machine *lifecycle.Machine
	store   *learning.Store
	queue   *learning.Queue
	logger  logging.Logger
	records *prometheus.CounterVec
}

// NewIngester creates an engagement event ingester
func NewIngester(machine *lifecycle.Machine, store *learning.Store, queue *learning.Queue, logger logging.Logger) *Ingester {
	return &Ingester{
		machine: machine,
		store:   store,
		queue:   queue,
		logger:  logger,
	}
}

// SetRecordsMetric wires the engagement records counter (labels: source, status)
func (i *Ingester) SetRecordsMetric(c *prometheus.CounterVec) {
	i.records = c
}

func (i *Ingester) count(status string) {
	if i.records != nil {
		i.records.WithLabelValues("kafka", status).Inc()
	}
}

// Register subscribes the ingester on the consumer
func (i *Ingester) Register(consumer *kafka.Consumer) {
	consumer.AddHandler(EngagementTopic, i.HandleEvent)
}

// HandleEvent processes one engagement event
func (i *Ingester) HandleEvent(ctx context.Context, msg kafka.Message) error {
	var event models.EngagementEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		i.logger.WithError(err).WithField("offset", msg.Offset).Warn("Dropping malformed engagement event")
		i.count("malformed")
		return nil
	}
	if event.PostID == "" {
		i.logger.WithField("offset", msg.Offset).Warn("Dropping engagement event without post_id")
		i.count("malformed")
		return nil
	}

	post, err := i.machine.GetPost(ctx, event.PostID)
	if err == lifecycle.ErrNotFound {
		i.logger.WithField("post_id", event.PostID).Warn("Engagement event for unknown post")
		i.count("unknown_post")
		return nil
	}
	if err != nil {
		i.count("error")
		return fmt.Errorf("failed to resolve post: %w", err)
	}
	if post.Status != lifecycle.StatusPosted {
		i.logger.WithFields(logging.Fields{
			"post_id": post.ID,
			"status":  post.Status,
		}).Warn("Engagement event for unposted post")
		i.count("not_posted")
		return nil
	}

	data := models.EngagementData{
		Likes:    event.Likes,
		Comments: event.Comments,
		Shares:   event.Shares,
		Reach:    event.Reach,
		Clicks:   event.Clicks,
	}
	if event.Inquiries != nil {
		data.Inquiries = *event.Inquiries
	}

	analysis := content.AnalyzeCaption(post.Caption)
	if _, err := i.store.RecordEngagement(ctx, post, data, analysis); err != nil {
		i.count("error")
		return err
	}
	i.count("ok")

	i.queue.Enqueue(models.Segment{
		Suburb:       post.Suburb,
		PropertyType: post.PropertyType,
		PriceRange:   post.PriceRange,
	})
	return nil
}
