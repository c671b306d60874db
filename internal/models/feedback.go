package models

import (
	"time"
)

// FeedbackKind is one of the three solicited response options.
type FeedbackKind string

const (
	FeedbackPositivo   FeedbackKind = "positivo"
	FeedbackMejorar    FeedbackKind = "mejorar"
	FeedbackComentario FeedbackKind = "comentario"
)

// MaxFeedbackComment bounds free-text comments (runes, not bytes).
const MaxFeedbackComment = 500

// FeedbackEntry records one satisfaction response from a customer.
type FeedbackEntry struct {
	ID        string       `json:"id" gorm:"primaryKey"`
	Phone     string       `json:"phone" gorm:"index"`
	Kind      FeedbackKind `json:"kind"`
	Comment   string       `json:"comment"`
	CreatedAt time.Time    `json:"created_at"`
}

// TruncateComment enforces the comment bound, cutting at a rune boundary.
func TruncateComment(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxFeedbackComment {
		return text
	}
	return string(runes[:MaxFeedbackComment])
}
