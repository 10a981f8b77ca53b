package repositories

import (
	"time"

	"github.com/google/uuid"

	"pairchat/domain"
)

// On-disk records. Values are JSON; keys carry the ordering and
// uniqueness semantics (see each repository).

type diskUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type diskConversation struct {
	ID          string    `json:"id"`
	PairKey     string    `json:"pair_key"`
	Initiator   string    `json:"initiator"`
	Counterpart string    `json:"counterpart"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type diskMessage struct {
	ID       string    `json:"id"`
	Sender   string    `json:"sender"`
	Text     string    `json:"text,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
	VideoURL string    `json:"video_url,omitempty"`
	Seen     bool      `json:"seen"`
	At       time.Time `json:"at"`
}

func toConversation(d diskConversation) (domain.Conversation, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return domain.Conversation{
		ID:          id,
		Initiator:   d.Initiator,
		Counterpart: d.Counterpart,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

func fromConversation(c domain.Conversation) diskConversation {
	return diskConversation{
		ID:          c.ID.String(),
		PairKey:     domain.PairKey(c.Initiator, c.Counterpart),
		Initiator:   c.Initiator,
		Counterpart: c.Counterpart,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toMessage(d diskMessage) (domain.Message, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        id,
		SenderID:  d.Sender,
		Text:      d.Text,
		ImageURL:  d.ImageURL,
		VideoURL:  d.VideoURL,
		Seen:      d.Seen,
		CreatedAt: d.At.UTC(),
	}, nil
}

func fromMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:       m.ID.String(),
		Sender:   m.SenderID,
		Text:     m.Text,
		ImageURL: m.ImageURL,
		VideoURL: m.VideoURL,
		Seen:     m.Seen,
		At:       m.CreatedAt,
	}
}
