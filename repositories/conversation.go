//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"pairchat/domain"
)

type IConversationRepository interface {
	FindBetween(a, b string) (*domain.Conversation, error)
	GetOrCreate(a, b string) (domain.Conversation, bool, error)
	AppendMessage(conversation domain.Conversation, message domain.Message) error
	ListForUser(userID string) ([]domain.Conversation, error)
}

// ConversationRepository is the store adapter for Conversation records.
// The canonical pair key ("conv:pair:{smaller|larger}") is the storage
// level uniqueness constraint: whatever the direction of the first
// message, both orderings of a pair resolve to the same key.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

// FindBetween returns the conversation of the unordered pair, or nil
// when the pair never talked. Absence is not an error.
func (r ConversationRepository) FindBetween(a, b string) (*domain.Conversation, error) {
	var record diskConversation
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKeyBytes(a, b))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	conversation, err := toConversation(record)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// GetOrCreate resolves the pair's conversation, creating it when
// absent. The existence check and the insert run in one transaction;
// a conflicting concurrent creation surfaces as badger.ErrConflict and
// is resolved by refetching the winner. The losing record is simply
// discarded, never merged.
func (r ConversationRepository) GetOrCreate(a, b string) (domain.Conversation, bool, error) {
	now := time.Now().UTC()
	candidate := domain.Conversation{
		ID:          uuid.New(),
		Initiator:   a,
		Counterpart: b,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created := false
	var record diskConversation
	err := r.db.Update(func(txn *badger.Txn) error {
		created = false
		item, err := txn.Get(pairKeyBytes(a, b))
		if err == nil {
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		record = fromConversation(candidate)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err := txn.Set(pairKeyBytes(a, b), data); err != nil {
			return err
		}
		// Membership index for sidebar listing, one entry per participant.
		if err := txn.Set(memberKey(a, record.ID), []byte(record.PairKey)); err != nil {
			return err
		}
		if err := txn.Set(memberKey(b, record.ID), []byte(record.PairKey)); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err == badger.ErrConflict {
		r.log.Debug("Conversation creation lost the race, refetching winner",
			"pair", domain.PairKey(a, b))
		existing, ferr := r.FindBetween(a, b)
		if ferr != nil {
			return domain.Conversation{}, false, ferr
		}
		if existing != nil {
			return *existing, false, nil
		}
		return domain.Conversation{}, false, err
	}
	if err != nil {
		return domain.Conversation{}, false, err
	}

	conversation, err := toConversation(record)
	return conversation, created, err
}

// AppendMessage persists the message and bumps the conversation's
// UpdatedAt in a single transaction, so no reader ever observes one
// without the other. The message key embeds a zero-padded nanosecond
// timestamp: prefix scans come back in chronological order, and the
// trailing uuid disambiguates two messages landing on the same tick.
func (r ConversationRepository) AppendMessage(conversation domain.Conversation, message domain.Message) error {
	data, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}

	record := fromConversation(conversation)
	record.UpdatedAt = message.CreatedAt
	convData, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(conversation.ID, message), data); err != nil {
			return err
		}
		return txn.Set([]byte("conv:pair:"+record.PairKey), convData)
	})
}

// ListForUser walks the membership index and resolves each entry to
// its conversation record.
func (r ConversationRepository) ListForUser(userID string) ([]domain.Conversation, error) {
	var pairKeys []string
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("conv:user:" + userID + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				pairKeys = append(pairKeys, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var conversations []domain.Conversation
	for _, pk := range pairKeys {
		var record diskConversation
		err := r.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte("conv:pair:" + pk))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
		})
		if err == badger.ErrKeyNotFound {
			// Index entry without a record should not happen; skip it.
			r.log.Warn("Dangling conversation index entry", "pair", pk)
			continue
		}
		if err != nil {
			return nil, err
		}
		conversation, err := toConversation(record)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

func pairKeyBytes(a, b string) []byte {
	return []byte("conv:pair:" + domain.PairKey(a, b))
}

func memberKey(userID, conversationID string) []byte {
	return []byte("conv:user:" + userID + ":" + conversationID)
}

func messageKey(conversationID uuid.UUID, message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		conversationID,
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}
