package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// SessionState is the position of a conversation in the dialogue machine.
type SessionState string

const (
	StateAwaitingCUIT         SessionState = "awaiting_cuit"
	StateVerified             SessionState = "verified"
	StateAwaitingConsulta     SessionState = "awaiting_consulta"
	StateAwaitingNombreValue  SessionState = "awaiting_nombre_value"
	StateAwaitingEmailValue   SessionState = "awaiting_email_value"
	StateConfirm              SessionState = "confirm"
	StateConfirmLogout        SessionState = "confirm_logout"
	StateAwaitingFeedbackText SessionState = "awaiting_feedback_text"
)

// Session stores the conversational state for one WhatsApp number.
// One row per phone, created lazily on the first inbound message.
// It is never deleted; logout resets it back to awaiting_cuit.
type Session struct {
	gorm.Model
	Phone                  string       `json:"phone" gorm:"uniqueIndex"`
	CUIT                   *string      `json:"cuit"`
	VerifiedAt             *time.Time   `json:"verified_at"`
	ExpiresAt              *time.Time   `json:"expires_at"`
	State                  SessionState `json:"state"`
	PendingJSON            *string      `json:"pending"` // serialized PendingAction
	SearchJSON             *string      `json:"search"`  // serialized SearchContext
	FeedbackLastPromptAt   *time.Time   `json:"feedback_last_prompt_at"`
	FeedbackLastResponseAt *time.Time   `json:"feedback_last_response_at"`
}

// IsVerified reports whether the session holds a currently valid
// verification. Expiry is checked, not just stored: once ExpiresAt has
// passed the session is unverified no matter what State says.
func (s *Session) IsVerified(now time.Time) bool {
	if s.CUIT == nil || s.ExpiresAt == nil {
		return false
	}
	return now.Before(*s.ExpiresAt)
}

// PendingKind discriminates the pending-action union.
type PendingKind string

const (
	PendingEditNombre PendingKind = "edit_nombre"
	PendingEditEmail  PendingKind = "edit_email"
	PendingLogout     PendingKind = "logout"
)

// PendingAction is a proposed, not yet confirmed, state-changing operation.
// PriorState is where cancel returns the conversation to.
type PendingAction struct {
	Kind       PendingKind  `json:"kind"`
	Value      string       `json:"value,omitempty"`
	PrevValue  string       `json:"prev_value,omitempty"`
	PriorState SessionState `json:"prior_state"`
}

// Pending decodes the stored pending action, or nil when none is set.
func (s *Session) Pending() *PendingAction {
	if s.PendingJSON == nil || *s.PendingJSON == "" {
		return nil
	}
	var p PendingAction
	if err := json.Unmarshal([]byte(*s.PendingJSON), &p); err != nil {
		return nil
	}
	return &p
}

// EncodePending serializes a pending action for storage.
func EncodePending(p *PendingAction) (*string, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}
