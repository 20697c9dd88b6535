// Package handlers exposes the post lifecycle and insight APIs over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JustinHellens-SA/real-estate-auto-post/internal/content"
	"github.com/JustinHellens-SA/real-estate-auto-post/internal/insights"
	"github.com/JustinHellens-SA/real-estate-auto-post/internal/learning"
	"github.com/JustinHellens-SA/real-estate-auto-post/internal/lifecycle"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/logging"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/middleware"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

var (
	machine     *lifecycle.Machine
	store       *learning.Store
	queue       *learning.Queue
	provider    *insights.Provider
	logger      logging.Logger
	engagements *prometheus.CounterVec
)

// Init sets up the handlers with their dependencies
func Init(m *lifecycle.Machine, s *learning.Store, q *learning.Queue, p *insights.Provider, l logging.Logger) {
	machine = m
	store = s
	queue = q
	provider = p
	logger = l
}

// nowFunc is swapped in tests
var nowFunc = time.Now

// SetEngagementMetric wires the engagement records counter (labels: source, status)
func SetEngagementMetric(c *prometheus.CounterVec) {
	engagements = c
}

func countEngagement(status string) {
	if engagements != nil {
		engagements.WithLabelValues("http", status).Inc()
	}
}

// respondError maps domain errors onto HTTP statuses
func respondError(c middleware.Context, err error, action string) {
	var (
		transitionErr *lifecycle.InvalidTransitionError
		validationErr *lifecycle.ValidationError
	)
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		c.JSON(http.StatusNotFound, middleware.H{"error": "Post not found"})
	case errors.Is(err, learning.ErrNoMemory):
		c.JSON(http.StatusNotFound, middleware.H{"error": "No engagement recorded for post"})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, middleware.H{"error": transitionErr.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, middleware.H{"error": validationErr.Error()})
	default:
		logger.WithError(err).Error("Failed to " + action)
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Failed to " + action})
	}
}

// CreatePost creates a new DRAFT post
func CreatePost(c middleware.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid request body"})
		return
	}

	post, err := machine.CreatePost(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "create post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetPost returns a single post
func GetPost(c middleware.Context) {
	post, err := machine.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "fetch post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// ListPosts returns post summaries, optionally filtered by status and agent
func ListPosts(c middleware.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	posts, err := machine.ListPosts(c.Request.Context(), lifecycle.ListFilter{
		Status:  c.Query("status"),
		AgentID: c.Query("agent_id"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		respondError(c, err, "list posts")
		return
	}
	c.JSON(http.StatusOK, middleware.H{"posts": posts, "count": len(posts)})
}

// ListReadyPosts returns scheduled posts whose publish time has passed
func ListReadyPosts(c middleware.Context) {
	posts, err := machine.ListReadyToPost(c.Request.Context(), nowFunc())
	if err != nil {
		respondError(c, err, "list ready posts")
		return
	}
	c.JSON(http.StatusOK, middleware.H{"posts": posts, "count": len(posts)})
}

// TransitionPost moves a post to a new status
func TransitionPost(c middleware.Context) {
	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "to_status is required"})
		return
	}

	post, err := machine.Transition(c.Request.Context(), c.Param("id"), req.ToStatus, req.Actor, req.Note)
	if err != nil {
		respondError(c, err, "transition post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// FailPost marks a post FAILED with a reason
func FailPost(c middleware.Context) {
	var req models.FailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "reason is required"})
		return
	}

	post, err := machine.MarkFailed(c.Request.Context(), c.Param("id"), req.Reason, req.Actor)
	if err != nil {
		respondError(c, err, "fail post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// RetryPost returns a FAILED post to its last healthy status
func RetryPost(c middleware.Context) {
	var req models.RetryRequest
	_ = c.ShouldBindJSON(&req)

	post, err := machine.Retry(c.Request.Context(), c.Param("id"), req.Actor)
	if err != nil {
		respondError(c, err, "retry post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// SchedulePost schedules an approved post
func SchedulePost(c middleware.Context) {
	var req models.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "scheduled_for is required"})
		return
	}

	post, err := machine.Schedule(c.Request.Context(), c.Param("id"), req.ScheduledFor, req.Actor)
	if err != nil {
		respondError(c, err, "schedule post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// MarkPosted finalizes a post as published
func MarkPosted(c middleware.Context) {
	var req models.MarkPostedRequest
	_ = c.ShouldBindJSON(&req)

	post, err := machine.MarkPosted(c.Request.Context(), c.Param("id"), models.ExternalRefs{
		MetaPostID:      req.MetaPostID,
		FacebookPostID:  req.FacebookPostID,
		InstagramPostID: req.InstagramPostID,
	})
	if err != nil {
		respondError(c, err, "mark post live")
		return
	}
	c.JSON(http.StatusOK, post)
}

// GetHistory returns the full status audit trail for a post
func GetHistory(c middleware.Context) {
	entries, err := machine.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "fetch history")
		return
	}
	c.JSON(http.StatusOK, middleware.H{"history": entries, "count": len(entries)})
}

// GetStatistics returns post counts by status
func GetStatistics(c middleware.Context) {
	stats, err := machine.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RecordEngagement stores the full engagement snapshot for a posted post
// and queues its segment for relearning
func RecordEngagement(c middleware.Context) {
	var req models.EngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid request body"})
		return
	}

	post, err := machine.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "fetch post")
		return
	}
	if post.Status != lifecycle.StatusPosted {
		countEngagement("not_posted")
		c.JSON(http.StatusConflict, middleware.H{"error": "Engagement can only be recorded for posted posts"})
		return
	}

	data := models.EngagementData{
		Likes:    req.Likes,
		Comments: req.Comments,
		Shares:   req.Shares,
		Reach:    req.Reach,
		Clicks:   req.Clicks,
	}
	if req.Inquiries != nil {
		data.Inquiries = *req.Inquiries
	}

	mem, err := store.RecordEngagement(c.Request.Context(), post, data, content.AnalyzeCaption(post.Caption))
	if err != nil {
		countEngagement("error")
		respondError(c, err, "record engagement")
		return
	}
	countEngagement("ok")

	queue.Enqueue(models.Segment{
		Suburb:       post.Suburb,
		PropertyType: post.PropertyType,
		PriceRange:   post.PriceRange,
	})
	c.JSON(http.StatusOK, mem)
}

// PatchEngagement merges partial counts into the stored engagement record
func PatchEngagement(c middleware.Context) {
	var req models.EngagementPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid request body"})
		return
	}

	mem, err := store.PatchEngagement(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		countEngagement("error")
		respondError(c, err, "update engagement")
		return
	}
	countEngagement("ok")

	queue.Enqueue(models.Segment{
		Suburb:       mem.Suburb,
		PropertyType: mem.PropertyType,
		PriceRange:   mem.PriceRange,
	})
	c.JSON(http.StatusOK, mem)
}

// RecordInquiry adds one buyer inquiry to the stored engagement record
func RecordInquiry(c middleware.Context) {
	mem, err := store.RecordInquiry(c.Request.Context(), c.Param("id"))
	if err != nil {
		countEngagement("error")
		respondError(c, err, "record inquiry")
		return
	}
	countEngagement("ok")

	queue.Enqueue(models.Segment{
		Suburb:       mem.Suburb,
		PropertyType: mem.PropertyType,
		PriceRange:   mem.PriceRange,
	})
	c.JSON(http.StatusOK, mem)
}

// GetEngagement returns the stored engagement record for a post
func GetEngagement(c middleware.Context) {
	mem, err := store.GetMemory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "fetch engagement")
		return
	}
	c.JSON(http.StatusOK, mem)
}

// GetInsights returns the ranked pattern listing plus corpus stats, or a
// single agent's rollup when agent_id is given
func GetInsights(c middleware.Context) {
	if agentID := c.Query("agent_id"); agentID != "" {
		perf, err := provider.AgentPerformance(c.Request.Context(), agentID)
		if err != nil {
			respondError(c, err, "fetch agent performance")
			return
		}
		c.JSON(http.StatusOK, perf)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	patterns, err := provider.TopInsights(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "fetch insights")
		return
	}
	overview, err := provider.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err, "fetch insights")
		return
	}
	c.JSON(http.StatusOK, middleware.H{"insights": patterns, "stats": overview})
}

// GetContentInsights returns caption guidance for a segment. Accepts either
// an explicit price_range or a raw price to bucket.
func GetContentInsights(c middleware.Context) {
	suburb := c.Query("suburb")
	propertyType := c.Query("property_type")
	if suburb == "" || propertyType == "" {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "suburb and property_type are required"})
		return
	}

	priceRange := c.Query("price_range")
	if priceRange == "" {
		price := c.Query("price")
		if price == "" {
			c.JSON(http.StatusBadRequest, middleware.H{"error": "price_range or price is required"})
			return
		}
		v, err := strconv.ParseFloat(price, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, middleware.H{"error": "price must be numeric"})
			return
		}
		priceRange = content.PriceRange(v)
	}

	ci, err := provider.ContentInsights(c.Request.Context(), models.Segment{
		Suburb:       suburb,
		PropertyType: propertyType,
		PriceRange:   priceRange,
	})
	if err != nil {
		respondError(c, err, "fetch content insights")
		return
	}
	c.JSON(http.StatusOK, ci)
}

// GetAgentPerformance returns an agent's engagement rollup
func GetAgentPerformance(c middleware.Context) {
	perf, err := provider.AgentPerformance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "fetch agent performance")
		return
	}
	c.JSON(http.StatusOK, perf)
}
