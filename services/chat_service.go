package services

import (
	"context"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/runtime"
	"pairchat/search"
)

type IChatService interface {
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	MarkSeen(ctx context.Context, cmd domain.MarkSeenCommand) error
	FetchHistory(ctx context.Context, viewerID, counterpartID string) ([]domain.Message, error)
	ConversationList(viewerID string) ([]domain.ConversationView, error)
	SearchMessages(ctx context.Context, viewerID, query string) ([]search.Hit, error)
	BindSession(userID, sessionID string, sink contract.EventSink)
	UnbindSession(userID, sessionID string)
}

const searchResultLimit = 25

// ChatService is the thin seam between the gateway and the runtime.
type ChatService struct {
	orchestrator *runtime.Orchestrator
	index        *search.MessageIndex
}

func NewChatService(o *runtime.Orchestrator, index *search.MessageIndex) *ChatService {
	return &ChatService{orchestrator: o, index: index}
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	return s.orchestrator.SendMessage(ctx, cmd)
}

func (s *ChatService) MarkSeen(ctx context.Context, cmd domain.MarkSeenCommand) error {
	return s.orchestrator.MarkSeen(ctx, cmd)
}

func (s *ChatService) FetchHistory(ctx context.Context, viewerID, counterpartID string) ([]domain.Message, error) {
	return s.orchestrator.FetchHistory(ctx, viewerID, counterpartID)
}

func (s *ChatService) ConversationList(viewerID string) ([]domain.ConversationView, error) {
	return s.orchestrator.ConversationList(viewerID)
}

func (s *ChatService) SearchMessages(ctx context.Context, viewerID, query string) ([]search.Hit, error) {
	return s.index.Search(ctx, viewerID, query, searchResultLimit)
}

func (s *ChatService) BindSession(userID, sessionID string, sink contract.EventSink) {
	s.orchestrator.BindSession(userID, sessionID, sink)
}

func (s *ChatService) UnbindSession(userID, sessionID string) {
	s.orchestrator.UnbindSession(userID, sessionID)
}
