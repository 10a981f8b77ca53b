package gateway

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"

	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/search"
)

// Frame is the envelope of every websocket exchange, both directions.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	eventSendMessage    = "send-message"
	eventMarkSeen       = "mark-seen"
	eventRequestHistory = "request-history"
	eventRequestSidebar = "request-sidebar"
	eventUpdateProfile  = "update-profile"
	eventSearchMessages = "search-messages"

	eventPresenceUpdate   = "presence-update"
	eventHistory          = "history"
	eventCounterpart      = "counterpart"
	eventMessageDelivered = "message-delivered"
	eventConversationList = "conversation-list"
	eventSearchResults    = "search-results"
	eventError            = "error"
)

type sendMessageIn struct {
	Receiver string `json:"receiver"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	VideoURL string `json:"videoUrl"`
}

type counterpartIn struct {
	Counterpart string `json:"counterpart"`
}

type updateProfileIn struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type searchIn struct {
	Query string `json:"query"`
}

type wireIdentity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type wireMessage struct {
	ID       string    `json:"id"`
	Sender   string    `json:"sender"`
	Text     string    `json:"text,omitempty"`
	ImageURL string    `json:"imageUrl,omitempty"`
	VideoURL string    `json:"videoUrl,omitempty"`
	Seen     bool      `json:"seen"`
	SentAt   time.Time `json:"sentAt"`
}

type wireConversation struct {
	ID          string       `json:"id"`
	Counterpart wireIdentity `json:"counterpart"`
	Online      bool         `json:"online"`
	UnseenCount int          `json:"unseenCount"`
	LastMessage *wireMessage `json:"lastMessage,omitempty"`
}

type wireHit struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	Sender         string `json:"sender"`
	Text           string `json:"text"`
}

type presenceOut struct {
	Online []wireIdentity `json:"online"`
}

type historyOut struct {
	Counterpart string        `json:"counterpart"`
	Messages    []wireMessage `json:"messages"`
}

type deliveredOut struct {
	ConversationID string        `json:"conversationId"`
	Posted         *wireMessage  `json:"posted,omitempty"`
	Messages       []wireMessage `json:"messages"`
}

type sidebarOut struct {
	Conversations []wireConversation `json:"conversations"`
}

type searchOut struct {
	Hits []wireHit `json:"hits"`
}

type errorOut struct {
	Kind      errors.Kind `json:"kind"`
	Detail    string      `json:"detail"`
	Retryable bool        `json:"retryable"`
}

// newFrame marshals a payload into its envelope. Marshalling the wire
// structs above cannot fail, so errors collapse to an internal frame.
func newFrame(eventName string, payload any) Frame {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(errorOut{Kind: errors.KindInternal, Detail: "encoding failure"})
		return Frame{Event: eventError, Payload: raw}
	}
	return Frame{Event: eventName, Payload: raw}
}

func errorFrame(err error) Frame {
	return newFrame(eventError, errorOut{
		Kind:      errors.MapToKind(err),
		Detail:    err.Error(),
		Retryable: errors.Retryable(err),
	})
}

func toWireIdentity(u domain.UserIdentity) wireIdentity {
	return wireIdentity{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}

func toWireIdentities(users []domain.UserIdentity) []wireIdentity {
	return lo.Map(users, func(u domain.UserIdentity, _ int) wireIdentity {
		return toWireIdentity(u)
	})
}

func toWireMessage(m domain.Message) wireMessage {
	return wireMessage{
		ID:       m.ID.String(),
		Sender:   m.SenderID,
		Text:     m.Text,
		ImageURL: m.ImageURL,
		VideoURL: m.VideoURL,
		Seen:     m.Seen,
		SentAt:   m.CreatedAt,
	}
}

func toWireMessages(messages []domain.Message) []wireMessage {
	return lo.Map(messages, func(m domain.Message, _ int) wireMessage {
		return toWireMessage(m)
	})
}

func toWireConversations(views []domain.ConversationView) []wireConversation {
	return lo.Map(views, func(v domain.ConversationView, _ int) wireConversation {
		entry := wireConversation{
			ID:          v.ConversationID.String(),
			Counterpart: toWireIdentity(v.Counterpart),
			Online:      v.Online,
			UnseenCount: v.UnseenCount,
		}
		if v.LastMessage != nil {
			last := toWireMessage(*v.LastMessage)
			entry.LastMessage = &last
		}
		return entry
	})
}

func toWireHits(hits []search.Hit) []wireHit {
	return lo.Map(hits, func(h search.Hit, _ int) wireHit {
		return wireHit{
			MessageID:      h.MessageID,
			ConversationID: h.ConversationID,
			Sender:         h.Sender,
			Text:           h.Text,
		}
	})
}

// toFrame converts a fanned-out domain event into its outbound frame.
// Unknown event types yield ok=false and are skipped by the pump.
func toFrame(e event.DomainEvent) (Frame, bool) {
	switch evt := e.(type) {
	case event.PresenceUpdated:
		return newFrame(eventPresenceUpdate, presenceOut{Online: toWireIdentities(evt.Online)}), true
	case event.MessageDelivered:
		return newFrame(eventMessageDelivered, deliveredOut{
			ConversationID: evt.ConversationID.String(),
			Posted:         postedPointer(evt.Posted),
			Messages:       toWireMessages(evt.Messages),
		}), true
	case event.SidebarRefreshed:
		return newFrame(eventConversationList, sidebarOut{Conversations: toWireConversations(evt.Views)}), true
	default:
		return Frame{}, false
	}
}

func postedPointer(m *domain.Message) *wireMessage {
	if m == nil {
		return nil
	}
	posted := toWireMessage(*m)
	return &posted
}
