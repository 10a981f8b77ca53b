//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"pairchat/domain"
	"pairchat/errors"
)

type IMessageRepository interface {
	GetMessages(conversationID uuid.UUID) ([]domain.Message, error)
	MarkSeen(conversationID uuid.UUID, senderID string) (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// GetMessages retrieves the full message sequence of a conversation
// using a prefix scan. The padded timestamp in the key makes the
// iteration order the chronological order; no sort happens here.
// A conversation with no messages yields an empty slice, not an error.
func (m MessageRepository) GetMessages(conversationID uuid.UUID) ([]domain.Message, error) {
	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:" + conversationID.String() + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				raw = append(raw, append([]byte(nil), val...))
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

	messages := make([]domain.Message, 0, len(raw))
	for _, data := range raw {
		var record diskMessage
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, err
		}
		message, err := toMessage(record)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// markSeenRetries bounds the replays of a seen-flip that keeps losing
// against concurrent appends on the same message prefix.
const markSeenRetries = 3

// MarkSeen flips Seen to true on every unseen message authored by
// senderID. Already-seen messages are untouched, so applying it twice
// is the same as applying it once. Returns how many flags flipped.
//
// The scan-then-write conflicts with a concurrent append on the same
// prefix; badger aborts the loser with ErrConflict, and the whole
// transaction replays against the fresh snapshot. Exhausted retries
// surface as a retryable storage failure, never as a raw conflict.
func (m MessageRepository) MarkSeen(conversationID uuid.UUID, senderID string) (int, error) {
	for attempt := 0; attempt < markSeenRetries; attempt++ {
		flipped, err := m.markSeenOnce(conversationID, senderID)
		if err == badger.ErrConflict {
			m.log.Debug("Seen update lost against a concurrent write, replaying",
				"conversation", conversationID, "attempt", attempt+1)
			continue
		}
		return flipped, err
	}
	return 0, errors.ErrStorageUnavailable
}

func (m MessageRepository) markSeenOnce(conversationID uuid.UUID, senderID string) (int, error) {
	flipped := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		flipped = 0
		prefix := []byte("msg:" + conversationID.String() + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		type pending struct {
			key  []byte
			data []byte
		}
		var updates []pending

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var record diskMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return err
			}
			if record.Sender != senderID || record.Seen {
				continue
			}
			record.Seen = true
			data, err := json.Marshal(record)
			if err != nil {
				return err
			}
			updates = append(updates, pending{
				key:  item.KeyCopy(nil),
				data: data,
			})
		}

		// Writes happen after the iterator closes its snapshot walk.
		for _, u := range updates {
			if err := txn.Set(u.key, u.data); err != nil {
				return err
			}
		}
		flipped = len(updates)
		return nil
	})
	return flipped, err
}
