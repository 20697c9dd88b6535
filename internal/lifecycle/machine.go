package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JustinHellens-SA/real-estate-auto-post/internal/content"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/logging"
	"github.com/JustinHellens-SA/real-estate-auto-post/pkg/models"
)

const postColumns = `id, address, suburb, property_type, price, price_range, caption, agent_id,
	status, retry_count, failure_reason, scheduled_for, posted_at,
	meta_post_id, facebook_post_id, instagram_post_id, created_at, updated_at`

// Machine applies status transitions to posts and records every move in the
// audit trail. All mutations run in a transaction with the post row locked.
type Machine struct {
	db          *sql.DB
	logger      logging.Logger
	transitions *prometheus.CounterVec
}

// NewMachine creates a lifecycle machine backed by the given database
func NewMachine(db *sql.DB, logger logging.Logger) *Machine {
	return &Machine{db: db, logger: logger}
}

// SetTransitionMetric wires the transitions counter (labels: from, to, status)
func (m *Machine) SetTransitionMetric(c *prometheus.CounterVec) {
	m.transitions = c
}

func (m *Machine) countTransition(from, to, status string) {
	if m.transitions != nil {
		m.transitions.WithLabelValues(from, to, status).Inc()
	}
}

// CreatePost inserts a new DRAFT post and its first history entry
func (m *Machine) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	priceRange := content.PriceRange(parsePrice(req.Price))

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posts (id, address, suburb, property_type, price, price_range, caption, agent_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, req.Address, req.Suburb, req.PropertyType, req.Price, priceRange, req.Caption, req.AgentID, StatusDraft)
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	if err := insertHistory(ctx, tx, id, StatusDraft, "system", "post created"); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	m.logger.WithFields(logging.Fields{
		"post_id": id,
		"suburb":  req.Suburb,
		"agent":   req.AgentID,
	}).Info("Post created")

	return m.GetPost(ctx, id)
}

// GetPost fetches a single post by ID
func (m *Machine) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID)
	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}
	return post, nil
}

// ListFilter narrows ListPosts results
type ListFilter struct {
	Status  string
	AgentID string
	Limit   int
	Offset  int
}

// ListPosts returns post summaries, newest first
func (m *Machine) ListPosts(ctx context.Context, filter ListFilter) ([]models.PostSummary, error) {
	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, &ValidationError{Field: "status", Message: "unknown status " + filter.Status}
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	query := `SELECT id, address, price, status, posted_at, created_at FROM posts`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AgentID != "" {
		args = append(args, filter.AgentID)
		conditions = append(conditions, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.PostSummary
	for rows.Next() {
		var p models.PostSummary
		if err := rows.Scan(&p.ID, &p.Address, &p.Price, &p.Status, &p.PostedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Transition moves a post to a new status if the state machine allows it.
// Leaving FAILED clears the failure reason.
func (m *Machine) Transition(ctx context.Context, postID, toStatus, actor, note string) (*models.Post, error) {
	if !IsValidStatus(toStatus) {
		return nil, &ValidationError{Field: "to_status", Message: "unknown status " + toStatus}
	}

	err := m.withLockedPost(ctx, postID, func(tx *sql.Tx, from string) error {
		if !CanTransition(from, toStatus) {
			m.countTransition(from, toStatus, "rejected")
			return &InvalidTransitionError{From: from, To: toStatus}
		}

		query := `UPDATE posts SET status = $1, updated_at = NOW()`
		if from == StatusFailed {
			query += `, failure_reason = NULL`
		}
		query += ` WHERE id = $2`
		if _, err := tx.ExecContext(ctx, query, toStatus, postID); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}

		if err := insertHistory(ctx, tx, postID, toStatus, actor, note); err != nil {
			return err
		}
		m.countTransition(from, toStatus, "ok")
		m.logger.WithFields(logging.Fields{
			"post_id": postID,
			"from":    from,
			"to":      toStatus,
			"actor":   actor,
		}).Info("Post transitioned")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.GetPost(ctx, postID)
}

// MarkAIGenerated records that a caption was attached to a draft
func (m *Machine) MarkAIGenerated(ctx context.Context, postID, actor string) (*models.Post, error) {
	return m.Transition(ctx, postID, StatusAIGenerated, actor, "caption generated")
}

// Approve moves an AI_GENERATED post to APPROVED
func (m *Machine) Approve(ctx context.Context, postID, actor string) (*models.Post, error) {
	return m.Transition(ctx, postID, StatusApproved, actor, "approved")
}

// MarkFailed forces a post to FAILED with its reason and bumps the retry
// counter. Failure can strike from any status, including a repeat report on
// an already-FAILED post, so the transition table is not consulted.
func (m *Machine) MarkFailed(ctx context.Context, postID, reason, actor string) (*models.Post, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "failure reason is required"}
	}

	err := m.withLockedPost(ctx, postID, func(tx *sql.Tx, from string) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE posts SET status = $1, failure_reason = $2, retry_count = retry_count + 1, updated_at = NOW()
			WHERE id = $3`,
			StatusFailed, reason, postID)
		if err != nil {
			return fmt.Errorf("failed to mark post failed: %w", err)
		}

		if err := insertHistory(ctx, tx, postID, StatusFailed, actor, reason); err != nil {
			return err
		}
		m.countTransition(from, StatusFailed, "ok")
		m.logger.WithFields(logging.Fields{
			"post_id": postID,
			"from":    from,
			"reason":  reason,
		}).Warn("Post marked failed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.GetPost(ctx, postID)
}

// Retry returns a FAILED post to the last healthy status it held, or DRAFT
// when its history holds nothing usable
func (m *Machine) Retry(ctx context.Context, postID, actor string) (*models.Post, error) {
	err := m.withLockedPost(ctx, postID, func(tx *sql.Tx, from string) error {
		if from != StatusFailed {
			return &ValidationError{Field: "status", Message: "only FAILED posts can be retried, post is " + from}
		}

		target, err := lastHealthyStatus(ctx, tx, postID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE posts SET status = $1, failure_reason = NULL, updated_at = NOW()
			WHERE id = $2`,
			target, postID)
		if err != nil {
			return fmt.Errorf("failed to retry post: %w", err)
		}

		if err := insertHistory(ctx, tx, postID, target, actor, "retry after failure"); err != nil {
			return err
		}
		m.countTransition(from, target, "ok")
		m.logger.WithFields(logging.Fields{
			"post_id": postID,
			"target":  target,
		}).Info("Post retried")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.GetPost(ctx, postID)
}

// Schedule moves an APPROVED post to SCHEDULED at the given time. Backdated
// times are allowed so a missed slot can still flow through the poster.
func (m *Machine) Schedule(ctx context.Context, postID string, at time.Time, actor string) (*models.Post, error) {
	if at.IsZero() {
		return nil, &ValidationError{Field: "scheduled_for", Message: "scheduled time is required"}
	}

	err := m.withLockedPost(ctx, postID, func(tx *sql.Tx, from string) error {
		if !CanTransition(from, StatusScheduled) {
			m.countTransition(from, StatusScheduled, "rejected")
			return &InvalidTransitionError{From: from, To: StatusScheduled}
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE posts SET status = $1, scheduled_for = $2, updated_at = NOW()
			WHERE id = $3`,
			StatusScheduled, at, postID)
		if err != nil {
			return fmt.Errorf("failed to schedule post: %w", err)
		}

		note := "scheduled for " + at.UTC().Format(time.RFC3339)
		if err := insertHistory(ctx, tx, postID, StatusScheduled, actor, note); err != nil {
			return err
		}
		m.countTransition(from, StatusScheduled, "ok")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.GetPost(ctx, postID)
}

// MarkPosted finalizes a post as live and stores the platform identifiers
func (m *Machine) MarkPosted(ctx context.Context, postID string, refs models.ExternalRefs) (*models.Post, error) {
	err := m.withLockedPost(ctx, postID, func(tx *sql.Tx, from string) error {
		if !CanTransition(from, StatusPosted) {
			m.countTransition(from, StatusPosted, "rejected")
			return &InvalidTransitionError{From: from, To: StatusPosted}
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE posts SET status = $1, posted_at = NOW(),
				meta_post_id = $2, facebook_post_id = $3, instagram_post_id = $4,
				updated_at = NOW()
			WHERE id = $5`,
			StatusPosted, nullable(refs.MetaPostID), nullable(refs.FacebookPostID), nullable(refs.InstagramPostID), postID)
		if err != nil {
			return fmt.Errorf("failed to mark post live: %w", err)
		}

		if err := insertHistory(ctx, tx, postID, StatusPosted, "system", "published"); err != nil {
			return err
		}
		m.countTransition(from, StatusPosted, "ok")
		m.logger.WithField("post_id", postID).Info("Post published")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.GetPost(ctx, postID)
}

// ListReadyToPost returns scheduled posts whose time has come, oldest slot first
func (m *Machine) ListReadyToPost(ctx context.Context, now time.Time) ([]models.Post, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for ASC`,
		StatusScheduled, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list ready posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// History returns the full audit trail for a post, oldest first
func (m *Machine) History(ctx context.Context, postID string) ([]models.StatusHistoryEntry, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check post: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT status, actor, note, created_at FROM post_status_history
		WHERE post_id = $1 ORDER BY id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer rows.Close()

	var entries []models.StatusHistoryEntry
	for rows.Next() {
		var e models.StatusHistoryEntry
		if err := rows.Scan(&e.Status, &e.Actor, &e.Note, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Statistics returns post counts by status plus the share that sits in FAILED
func (m *Machine) Statistics(ctx context.Context) (*models.PostStatistics, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM posts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statistics: %w", err)
	}
	defer rows.Close()

	stats := &models.PostStatistics{ByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan statistics: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.FailureRate = float64(stats.ByStatus[StatusFailed]) / float64(stats.Total)
	}
	return stats, nil
}

// withLockedPost runs fn inside a transaction with the post row locked
func (m *Machine) withLockedPost(ctx context.Context, postID string, fn func(tx *sql.Tx, currentStatus string) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock post: %w", err)
	}

	if err := fn(tx, status); err != nil {
		return err
	}
	return tx.Commit()
}

// lastHealthyStatus walks the audit trail backwards for the most recent
// non-FAILED status that FAILED may return to
func lastHealthyStatus(ctx context.Context, tx *sql.Tx, postID string) (string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT status FROM post_status_history
		WHERE post_id = $1 ORDER BY id DESC`, postID)
	if err != nil {
		return "", fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return "", fmt.Errorf("failed to scan history: %w", err)
		}
		if status != StatusFailed && CanTransition(StatusFailed, status) {
			return status, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return StatusDraft, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, postID, status, actor, note string) error {
	if actor == "" {
		actor = "system"
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO post_status_history (post_id, status, actor, note)
		VALUES ($1, $2, $3, $4)`,
		postID, status, actor, note)
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

func validateCreate(req models.CreatePostRequest) error {
	required := []struct {
		field string
		value string
	}{
		{"address", req.Address},
		{"suburb", req.Suburb},
		{"property_type", req.PropertyType},
		{"price", req.Price},
		{"agent_id", req.AgentID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "is required"}
		}
	}
	return nil
}

// parsePrice pulls the numeric value out of a display price like "R2,500,000"
func parsePrice(price string) float64 {
	var digits strings.Builder
	for _, r := range price {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID, &p.Address, &p.Suburb, &p.PropertyType, &p.Price, &p.PriceRange, &p.Caption, &p.AgentID,
		&p.Status, &p.RetryCount, &p.FailureReason, &p.ScheduledFor, &p.PostedAt,
		&p.MetaPostID, &p.FacebookPostID, &p.InstagramPostID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
