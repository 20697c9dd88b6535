// Package lifecycle owns the post state machine. Every status change goes
// through here so the audit trail and transition rules stay consistent.
package lifecycle

import (
	"errors"
	"fmt"
)

// Post statuses
const (
	StatusDraft       = "DRAFT"
	StatusAIGenerated = "AI_GENERATED"
	StatusApproved    = "APPROVED"
	StatusScheduled   = "SCHEDULED"
	StatusPosted      = "POSTED"
	StatusFailed      = "FAILED"
)

// validTransitions is the single source of truth for allowed status moves.
// POSTED is terminal.
var validTransitions = map[string][]string{
	StatusDraft:       {StatusAIGenerated, StatusFailed},
	StatusAIGenerated: {StatusApproved, StatusDraft, StatusFailed},
	StatusApproved:    {StatusScheduled, StatusPosted, StatusDraft, StatusFailed},
	StatusScheduled:   {StatusPosted, StatusDraft, StatusFailed},
	StatusPosted:      {},
	StatusFailed:      {StatusDraft, StatusAIGenerated, StatusApproved, StatusScheduled},
}

// IsValidStatus reports whether s is a known post status
func IsValidStatus(s string) bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransition reports whether a move from one status to another is allowed
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ErrNotFound is returned when the referenced post does not exist
var ErrNotFound = errors.New("post not found")

// InvalidTransitionError rejects a disallowed status move
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ValidationError rejects malformed input before it reaches the database
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
