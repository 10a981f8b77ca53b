package domain

import "github.com/google/uuid"

// ConversationView is the per-viewer sidebar entry. It is derived on
// demand from a Conversation and its Messages, never persisted.
type ConversationView struct {
	ConversationID uuid.UUID
	Counterpart    UserIdentity
	Online         bool
	UnseenCount    int
	LastMessage    *Message
}
