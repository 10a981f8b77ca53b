// Package projection derives per-viewer read models from stored state.
// Views are recomputed on demand and never persisted.
package projection

import (
	"sort"

	"pairchat/domain"
	"pairchat/repositories"
)

// Presence is the read-only slice of the registry the aggregator needs.
type Presence interface {
	IsOnline(userID string) bool
}

// Sidebar computes the conversation list pushed to dashboards: one
// entry per conversation containing the viewer, with the unseen count,
// the last message, and the counterpart's profile and online flag.
type Sidebar struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	users         repositories.IUserRepository
	presence      Presence
}

func NewSidebar(
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	presence Presence,
) *Sidebar {
	return &Sidebar{
		conversations: conversations,
		messages:      messages,
		users:         users,
		presence:      presence,
	}
}

// ConversationList builds the viewer's sidebar, most recently active
// conversation first. A conversation with zero messages still yields a
// well-formed entry: zero unseen, no last message.
func (s *Sidebar) ConversationList(viewerID string) ([]domain.ConversationView, error) {
	conversations, err := s.conversations.ListForUser(viewerID)
	if err != nil {
		return nil, err
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	views := make([]domain.ConversationView, 0, len(conversations))
	for _, conversation := range conversations {
		messages, err := s.messages.GetMessages(conversation.ID)
		if err != nil {
			return nil, err
		}

		unseen := 0
		for _, m := range messages {
			if m.SenderID != viewerID && !m.Seen {
				unseen++
			}
		}

		var last *domain.Message
		if len(messages) > 0 {
			tail := messages[len(messages)-1]
			last = &tail
		}

		counterpartID := conversation.Other(viewerID)
		counterpart := domain.UserIdentity{ID: counterpartID}
		if user, err := s.users.GetUserByID(counterpartID); err == nil {
			counterpart = user.Identity().Public()
		}

		views = append(views, domain.ConversationView{
			ConversationID: conversation.ID,
			Counterpart:    counterpart,
			Online:         s.presence.IsOnline(counterpartID),
			UnseenCount:    unseen,
			LastMessage:    last,
		})
	}
	return views, nil
}
