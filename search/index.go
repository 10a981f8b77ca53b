// Package search maintains a full-text index over delivered messages.
// Results are always scoped to the querying viewer's own conversations.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"pairchat/domain"
)

// Hit is one search result: enough to jump to the conversation.
type Hit struct {
	MessageID      string
	ConversationID string
	Sender         string
	Text           string
}

// MessageIndex wraps a bluge writer. Each message becomes one document
// keyed by its id; the participant keyword fields gate visibility so a
// viewer only ever matches messages from pairs they belong to.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index adds or replaces the document of one message. Media-only
// messages are skipped: there is no text to match.
func (i *MessageIndex) Index(conversationID uuid.UUID, participants []string, message domain.Message) error {
	if message.Text == "" {
		return nil
	}

	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("text", message.Text).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", conversationID.String()).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.SenderID).StoreValue()).
		AddField(bluge.NewDateTimeField("at", message.CreatedAt))
	for _, userID := range participants {
		doc.AddField(bluge.NewKeywordField("participant", userID))
	}

	return i.writer.Update(doc.ID(), doc)
}

// Search matches the query against message text, restricted to the
// viewer's conversations, most relevant first.
func (i *MessageIndex) Search(ctx context.Context, viewerID, query string, limit int) ([]Hit, error) {
	if query == "" {
		return []Hit{}, nil
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	booleanQuery := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("text")).
		AddMust(bluge.NewTermQuery(viewerID).SetField("participant"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, booleanQuery))
	if err != nil {
		return nil, err
	}

	hits := []Hit{}
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			return hits, nil
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "conversation":
				hit.ConversationID = string(value)
			case "sender":
				hit.Sender = string(value)
			case "text":
				hit.Text = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
}
