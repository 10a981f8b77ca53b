// Package event defines the domain events fanned out to connected
// sessions. Request/reply exchanges (history, sidebar on demand) are
// answered directly by the gateway and never travel through here.
package event

import (
	"pairchat/domain"

	"github.com/google/uuid"
)

// DomainEvent is anything the dispatcher can deliver. Targets lists
// the identities whose sessions must receive the event; nil means
// every connected session (presence broadcasts).
type DomainEvent interface {
	Targets() []string
}

// PresenceUpdated is broadcast to every session whenever an identity
// comes online or fully disconnects.
type PresenceUpdated struct {
	Online []domain.UserIdentity
}

func (PresenceUpdated) Targets() []string { return nil }

// MessageDelivered is pushed to both participants after a send or a
// mark-seen. Posted is the newly appended message when the trigger was
// a send; Messages is the full chronological sequence.
type MessageDelivered struct {
	ConversationID uuid.UUID
	Participants   []string
	Posted         *domain.Message
	Messages       []domain.Message
}

func (e MessageDelivered) Targets() []string { return e.Participants }

// SidebarRefreshed carries a participant's recomputed conversation
// list after any state change affecting it.
type SidebarRefreshed struct {
	UserID string
	Views  []domain.ConversationView
}

func (e SidebarRefreshed) Targets() []string { return []string{e.UserID} }
