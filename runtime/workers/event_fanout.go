package workers

import (
	"context"
	"log/slog"
	"time"

	"pairchat/contract"
	"pairchat/domain/event"
)

// EventFanout is the broadcast dispatcher: it drains the event channel
// and delivers each event to the sessions of its target identities,
// plus every permanent sink (search index, telemetry).
//
// Delivery is best-effort and only reaches sessions bound at the
// instant of the call. No queuing, no retry: a target with zero
// sessions is a silent no-op, since persistence already happened
// upstream. EventFanout is not a message broker.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	permanent   []contract.EventSink
	events      chan event.DomainEvent
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	permanent []contract.EventSink, events chan event.DomainEvent,
	sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		permanent:   permanent,
		events:      events,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout resolves the event's targets against the presence registry
// and hands the event to each sink under the delivery timeout. One
// slow or failing sink never blocks delivery to the others.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	var sinks []contract.EventSink
	targets := evt.Targets()
	if targets == nil {
		sinks = w.registry.AllSinks()
	} else {
		for _, userID := range targets {
			sinks = append(sinks, w.registry.SinksFor(userID)...)
		}
	}

	for _, sink := range append(w.permanent, sinks...) {
		w.consume(ctx, sink, evt)
	}
}

func (w *EventFanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	ctx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(ctx, evt); err != nil {
		w.log.Warn("Sink rejected event", "error", err)
	}
}
