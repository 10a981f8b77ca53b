package sink

import (
	"context"
	"log/slog"

	"pairchat/domain/event"
	"pairchat/search"
)

// SearchSink is a permanent fanout consumer that feeds every newly
// posted message into the full-text index. Indexing failures are
// logged and swallowed: search lag must never affect delivery.
type SearchSink struct {
	index *search.MessageIndex
	log   *slog.Logger
}

func NewSearchSink(index *search.MessageIndex, log *slog.Logger) *SearchSink {
	return &SearchSink{index: index, log: log}
}

func (s *SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	delivered, ok := e.(event.MessageDelivered)
	if !ok || delivered.Posted == nil {
		return nil
	}

	if err := s.index.Index(delivered.ConversationID, delivered.Participants, *delivered.Posted); err != nil {
		s.log.Warn("Message indexing failed",
			"conversation", delivered.ConversationID,
			"message", delivered.Posted.ID,
			"error", err)
	}
	return nil
}
