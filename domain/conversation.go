package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the unique record of exchanged messages between two
// identities. The pair is stored directionally (Initiator started the
// conversation) but every lookup treats it as unordered: at most one
// Conversation may exist per unordered pair.
type Conversation struct {
	ID          uuid.UUID
	Initiator   string
	Counterpart string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Other returns the participant facing viewer, or an empty string when
// the viewer is not part of the conversation.
func (c Conversation) Other(viewer string) string {
	switch viewer {
	case c.Initiator:
		return c.Counterpart
	case c.Counterpart:
		return c.Initiator
	}
	return ""
}

// PairKey canonicalizes an unordered pair of identities: the
// lexicographically smaller one always comes first. Storage uses it as
// the uniqueness key, the coordinator as the creation lock key, so
// neither needs symmetric lookups.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
