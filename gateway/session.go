package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"pairchat/domain"
	"pairchat/errors"
	"pairchat/services"
	"pairchat/sink"
)

// sessionState tracks a connection's lifecycle. Transitions only move
// forward; Closed is terminal and reached exactly once.
type sessionState int32

const (
	stateConnecting sessionState = iota
	stateAuthenticated
	stateActive
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateAuthenticated:
		return "authenticated"
	case stateActive:
		return "active"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// Session owns one websocket connection bound to one authenticated
// identity. The read loop dispatches inbound frames, the write loop is
// the sole writer on the connection, and the pump translates fanned-out
// domain events into outbound frames.
type Session struct {
	log       *slog.Logger
	conn      *websocket.Conn
	chat      services.IChatService
	users     services.IUserService
	userID    string
	sessionID string
	sink      *sink.SessionSink
	out       chan Frame
	state     atomic.Int32
	closeOnce sync.Once
}

func NewSession(
	log *slog.Logger,
	conn *websocket.Conn,
	chat services.IChatService,
	users services.IUserService,
	userID, sessionID string,
	bufferSize int,
) *Session {
	s := &Session{
		log:       log,
		conn:      conn,
		chat:      chat,
		users:     users,
		userID:    userID,
		sessionID: sessionID,
		sink:      sink.NewSessionSink(bufferSize),
		out:       make(chan Frame, bufferSize),
	}
	s.state.Store(int32(stateAuthenticated))
	return s
}

func (s *Session) setState(next sessionState) {
	previous := sessionState(s.state.Swap(int32(next)))
	s.log.Debug("Session state transition",
		"session", s.sessionID, "from", previous.String(), "to", next.String())
}

// Run binds the session into the registry, starts the write side and
// blocks on the read loop until the peer disconnects or the context is
// canceled. The registry unbind happens exactly once, before Run
// returns, so presence never outlives the connection.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.close()

	s.chat.BindSession(s.userID, s.sessionID, s.sink)
	s.setState(stateActive)
	s.log.Info("Session active", "user", s.userID, "session", s.sessionID)

	go s.writeLoop(ctx, cancel)
	go s.pumpEvents(ctx)

	s.readLoop(ctx)
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.setState(stateClosed)
		s.chat.UnbindSession(s.userID, s.sessionID)
		_ = s.conn.Close()
		s.log.Info("Session closed", "user", s.userID, "session", s.sessionID)
	})
}

// writeLoop is the single goroutine allowed to write on the
// connection. A write failure cancels the whole session.
func (s *Session) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-s.out:
			if err := s.conn.WriteJSON(frame); err != nil {
				s.log.Warn("Write failed, tearing session down",
					"session", s.sessionID, "error", err)
				cancel()
				s.close()
				return
			}
		}
	}
}

// pumpEvents drains the session sink and converts each domain event
// into its outbound frame.
func (s *Session) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.sink.Events:
			if frame, ok := toFrame(e); ok {
				s.send(ctx, frame)
			}
		}
	}
}

// send enqueues an outbound frame without ever blocking the caller.
// A saturated queue drops the frame; the client recovers state through
// request-history or request-sidebar.
func (s *Session) send(ctx context.Context, frame Frame) {
	select {
	case s.out <- frame:
	case <-ctx.Done():
	default:
		s.log.Warn("Outbound queue full, dropping frame",
			"session", s.sessionID, "event", frame.Event)
	}
}

func (s *Session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Connection dropped", "session", s.sessionID, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.send(ctx, errorFrame(errors.ErrMalformedFrame))
			continue
		}

		if err := s.dispatch(ctx, frame); err != nil {
			s.log.Warn("Inbound event failed",
				"session", s.sessionID, "event", frame.Event, "error", err)
			s.send(ctx, errorFrame(err))
		}
	}
}

func (s *Session) dispatch(ctx context.Context, frame Frame) error {
	switch frame.Event {
	case eventSendMessage:
		var in sendMessageIn
		if err := json.Unmarshal(frame.Payload, &in); err != nil {
			return errors.ErrMalformedFrame
		}
		_, err := s.chat.SendMessage(ctx, domain.SendMessageCommand{
			SenderID:   s.userID,
			ReceiverID: in.Receiver,
			Text:       in.Text,
			ImageURL:   in.ImageURL,
			VideoURL:   in.VideoURL,
		})
		return err

	case eventMarkSeen:
		var in counterpartIn
		if err := json.Unmarshal(frame.Payload, &in); err != nil {
			return errors.ErrMalformedFrame
		}
		return s.chat.MarkSeen(ctx, domain.MarkSeenCommand{
			ViewerID:      s.userID,
			CounterpartID: in.Counterpart,
		})

	case eventRequestHistory:
		var in counterpartIn
		if err := json.Unmarshal(frame.Payload, &in); err != nil {
			return errors.ErrMalformedFrame
		}
		profile, err := s.users.GetProfile(in.Counterpart)
		if err != nil {
			return err
		}
		messages, err := s.chat.FetchHistory(ctx, s.userID, in.Counterpart)
		if err != nil {
			return err
		}
		s.send(ctx, newFrame(eventCounterpart, toWireIdentity(profile)))
		s.send(ctx, newFrame(eventHistory, historyOut{
			Counterpart: in.Counterpart,
			Messages:    toWireMessages(messages),
		}))
		return nil

	case eventRequestSidebar:
		views, err := s.chat.ConversationList(s.userID)
		if err != nil {
			return err
		}
		s.send(ctx, newFrame(eventConversationList, sidebarOut{Conversations: toWireConversations(views)}))
		return nil

	case eventUpdateProfile:
		var in updateProfileIn
		if err := json.Unmarshal(frame.Payload, &in); err != nil {
			return errors.ErrMalformedFrame
		}
		identity, err := s.users.UpdateProfile(s.userID, in.Name, in.AvatarURL)
		if err != nil {
			return err
		}
		s.send(ctx, newFrame(eventCounterpart, toWireIdentity(identity)))
		return nil

	case eventSearchMessages:
		var in searchIn
		if err := json.Unmarshal(frame.Payload, &in); err != nil {
			return errors.ErrMalformedFrame
		}
		hits, err := s.chat.SearchMessages(ctx, s.userID, in.Query)
		if err != nil {
			return err
		}
		s.send(ctx, newFrame(eventSearchResults, searchOut{Hits: toWireHits(hits)}))
		return nil

	default:
		return errors.ErrUnknownEvent
	}
}
