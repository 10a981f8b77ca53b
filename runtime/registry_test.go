package runtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pairchat/domain/event"
)

type nopSink struct{ name string }

func (nopSink) Consume(ctx context.Context, e event.DomainEvent) error { return nil }

func TestRegistry_Bind_One_User_One_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	sink := nopSink{name: "a"}

	// Given nobody is connected
	req.Empty(registry.Snapshot())
	req.False(registry.IsOnline(userID))

	// When one session binds
	registry.Bind(userID, "session-1", sink)

	// Then the user is online and reachable through its sink
	req.True(registry.IsOnline(userID))
	req.Equal([]string{userID}, registry.Snapshot())
	req.Len(registry.SinksFor(userID), 1)
	req.Contains(registry.SinksFor(userID), sink)
}

func TestRegistry_Bind_Same_Session_Twice_Counts_Once(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()

	registry.Bind(userID, "session-1", nopSink{name: "a"})
	registry.Bind(userID, "session-1", nopSink{name: "b"})

	req.Len(registry.SinksFor(userID), 1)

	// A single unbind takes the user offline again
	registry.Unbind(userID, "session-1")
	req.False(registry.IsOnline(userID))
}

func TestRegistry_User_Stays_Online_Until_Last_Session_Unbinds(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()

	// Given two simultaneous sessions (two tabs)
	registry.Bind(userID, "tab-1", nopSink{name: "tab-1"})
	registry.Bind(userID, "tab-2", nopSink{name: "tab-2"})
	req.Len(registry.SinksFor(userID), 2)

	// When one tab closes
	registry.Unbind(userID, "tab-1")

	// Then the identity is still online through the other tab
	req.True(registry.IsOnline(userID))
	req.Contains(registry.Snapshot(), userID)
	req.Len(registry.SinksFor(userID), 1)

	// And only the last unbind removes the entry
	registry.Unbind(userID, "tab-2")
	req.False(registry.IsOnline(userID))
	req.Empty(registry.Snapshot())
	req.Nil(registry.SinksFor(userID))
}

func TestRegistry_Unbind_Never_Bound_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Unbind(uuid.NewString(), "ghost-session")

	req.Empty(registry.Snapshot())
}

func TestRegistry_AllSinks_Spans_Users(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Bind("alice", "s1", nopSink{name: "a"})
	registry.Bind("alice", "s2", nopSink{name: "b"})
	registry.Bind("bob", "s3", nopSink{name: "c"})

	req.Len(registry.AllSinks(), 3)
}
