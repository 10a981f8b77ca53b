package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/mocks"
)

func Test_Fanout_should_broadcast_untargeted_events_to_every_sink(t *testing.T) {
	ctrl := gomock.NewController(t)

	// GIVEN two bound sessions
	sinkA := mocks.NewMockEventSink(ctrl)
	sinkB := mocks.NewMockEventSink(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().AllSinks().Return([]contract.EventSink{sinkA, sinkB}).Times(1)

	broadcast := event.PresenceUpdated{Online: []domain.UserIdentity{{ID: "alice"}}}
	sinkA.EXPECT().Consume(gomock.Any(), broadcast).Return(nil).Times(1)
	sinkB.EXPECT().Consume(gomock.Any(), broadcast).Return(nil).Times(1)

	fanout := NewEventFanout(slog.Default(), registry, nil, make(chan event.DomainEvent), time.Second)

	// WHEN an untargeted event is fanned out
	fanout.Fanout(context.Background(), broadcast)
}

func Test_Fanout_should_deliver_targeted_events_to_participants_only(t *testing.T) {
	ctrl := gomock.NewController(t)

	aliceSink := mocks.NewMockEventSink(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().SinksFor("alice").Return([]contract.EventSink{aliceSink}).Times(1)
	// Bob is offline, his sessions resolve to nothing
	registry.EXPECT().SinksFor("bob").Return(nil).Times(1)

	delivered := event.MessageDelivered{Participants: []string{"alice", "bob"}}
	aliceSink.EXPECT().Consume(gomock.Any(), delivered).Return(nil).Times(1)

	fanout := NewEventFanout(slog.Default(), registry, nil, make(chan event.DomainEvent), time.Second)

	fanout.Fanout(context.Background(), delivered)
}

func Test_Fanout_should_always_feed_permanent_sinks(t *testing.T) {
	ctrl := gomock.NewController(t)

	permanent := mocks.NewMockEventSink(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().SinksFor(gomock.Any()).Return(nil).AnyTimes()

	delivered := event.MessageDelivered{Participants: []string{"alice", "bob"}}
	permanent.EXPECT().Consume(gomock.Any(), delivered).Return(nil).Times(1)

	fanout := NewEventFanout(slog.Default(), registry,
		[]contract.EventSink{permanent}, make(chan event.DomainEvent), time.Second)

	fanout.Fanout(context.Background(), delivered)
}

func Test_Run_should_drain_the_event_channel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	var wg sync.WaitGroup
	wg.Add(1)

	sink := mocks.NewMockEventSink(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().AllSinks().Return([]contract.EventSink{sink}).Times(1)
	sink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, event.DomainEvent) error {
			wg.Done()
			return nil
		}).
		Times(1)

	events := make(chan event.DomainEvent, 1)
	fanout := NewEventFanout(slog.Default(), registry, nil, events, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fanout.Run(ctx) }()

	events <- event.PresenceUpdated{}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		req.FailNow("event was never consumed")
	}
}
