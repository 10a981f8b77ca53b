package repositories

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pairchat/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestConversation_GetOrCreate_Then_FindBetween(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(openTestDB(t), slog.Default())
	alice, bob := uuid.NewString(), uuid.NewString()

	// Given no conversation between the pair
	found, err := repo.FindBetween(alice, bob)
	req.NoError(err)
	req.Nil(found)

	// When the pair's conversation is resolved
	conversation, created, err := repo.GetOrCreate(alice, bob)
	req.NoError(err)
	req.True(created)

	// Then both orderings find the same record
	found, err = repo.FindBetween(alice, bob)
	req.NoError(err)
	req.NotNil(found)
	req.Equal(conversation.ID, found.ID)

	reversed, err := repo.FindBetween(bob, alice)
	req.NoError(err)
	req.NotNil(reversed)
	req.Equal(conversation.ID, reversed.ID)
}

func TestConversation_GetOrCreate_Is_Idempotent_Per_Pair(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(openTestDB(t), slog.Default())
	alice, bob := uuid.NewString(), uuid.NewString()

	first, created, err := repo.GetOrCreate(alice, bob)
	req.NoError(err)
	req.True(created)

	// Resolving again, in either direction, returns the winner
	second, created, err := repo.GetOrCreate(bob, alice)
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, second.ID)
}

func TestConversation_Concurrent_GetOrCreate_Single_Record(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(openTestDB(t), slog.Default())
	alice, bob := uuid.NewString(), uuid.NewString()

	const attempts = 16
	ids := make(chan uuid.UUID, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		a, b := alice, bob
		if i%2 == 1 {
			a, b = bob, alice
		}
		go func(a, b string) {
			defer wg.Done()
			conversation, _, err := repo.GetOrCreate(a, b)
			require.NoError(t, err)
			ids <- conversation.ID
		}(a, b)
	}
	wg.Wait()
	close(ids)

	// All concurrent attempts must resolve to one conversation
	var winner uuid.UUID
	for id := range ids {
		if winner == uuid.Nil {
			winner = id
		}
		req.Equal(winner, id)
	}

	// And the membership index lists it once per participant
	forAlice, err := repo.ListForUser(alice)
	req.NoError(err)
	req.Len(forAlice, 1)
	forBob, err := repo.ListForUser(bob)
	req.NoError(err)
	req.Len(forBob, 1)
}

func TestConversation_AppendMessage_Bumps_UpdatedAt(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(openTestDB(t), slog.Default())
	alice, bob := uuid.NewString(), uuid.NewString()

	conversation, _, err := repo.GetOrCreate(alice, bob)
	req.NoError(err)

	at := time.Now().UTC().Add(time.Minute)
	err = repo.AppendMessage(conversation, domain.Message{
		ID:        uuid.New(),
		SenderID:  alice,
		Text:      "hi",
		CreatedAt: at,
	})
	req.NoError(err)

	found, err := repo.FindBetween(alice, bob)
	req.NoError(err)
	req.True(found.UpdatedAt.Equal(at))
}

func TestConversation_ListForUser_Empty(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(openTestDB(t), slog.Default())

	conversations, err := repo.ListForUser(uuid.NewString())
	req.NoError(err)
	req.Empty(conversations)
}
