// Package domain contains core concepts of the conversation system.
// This file defines Message records and related rules.
// A message is immutable except for its Seen flag, which only ever
// transitions false to true.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one element of a conversation's append-only sequence.
type Message struct {
	ID        uuid.UUID
	SenderID  string
	Text      string
	ImageURL  string
	VideoURL  string
	Seen      bool
	CreatedAt time.Time
}

// HasContent reports whether the message carries at least one of
// text or media reference. Empty messages are rejected upstream.
func (m Message) HasContent() bool {
	return m.Text != "" || m.ImageURL != "" || m.VideoURL != ""
}
