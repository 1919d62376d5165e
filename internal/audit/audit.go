package audit

import (
	"time"

	"github.com/google/uuid"
)

// Outcome describes how a session check ended
type Outcome string

// The possible outcomes of a session check
const (
	OutcomeGranted                Outcome = "granted"
	OutcomeMissingAuthorization   Outcome = "missing_authorization"
	OutcomeMalformedAuthorization Outcome = "malformed_authorization"
	OutcomeInvalidSession         Outcome = "invalid_session"
	OutcomeForbidden              Outcome = "forbidden"
	OutcomeUnavailable            Outcome = "unavailable"
)

// Valid reports whether the outcome is one of the known outcomes
func (outcome Outcome) Valid() bool {
	switch outcome {
	case OutcomeGranted, OutcomeMissingAuthorization, OutcomeMalformedAuthorization, OutcomeInvalidSession,
		OutcomeForbidden, OutcomeUnavailable:
		return true
	default:
		return false
	}
}

// Entry represents a recorded session check.
// The presented credential is never part of an entry.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	Timestamp      int64     `json:"timestamp"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	Outcome        Outcome   `json:"outcome"`
	UserID         *string   `json:"user_id"`
	RequiredScopes []string  `json:"required_scopes"`
	Cause          string    `json:"cause,omitempty"`
}

// NewEntry creates a new entry stamped with the current time (unix milliseconds)
func NewEntry(method, path string, outcome Outcome, requiredScopes []string) *Entry {
	scopes := make([]string, len(requiredScopes))
	copy(scopes, requiredScopes)
	return &Entry{
		ID:             uuid.New(),
		Timestamp:      time.Now().UnixMilli(),
		Method:         method,
		Path:           path,
		Outcome:        outcome,
		RequiredScopes: scopes,
	}
}
