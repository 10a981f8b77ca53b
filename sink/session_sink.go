// Package sink contains EventSink implementations: one per live
// session plus the permanent consumers fed by the fanout.
package sink

import (
	"context"

	"pairchat/domain/event"
)

// SessionSink buffers events for one websocket connection. The fanout
// writes into the channel; the session's writer goroutine drains it.
type SessionSink struct {
	Events chan event.DomainEvent
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume redirects the event to the owning session's channel. A full
// channel drops the event rather than stalling the fanout: the client
// resynchronizes through request-history or request-sidebar.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
