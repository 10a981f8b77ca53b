package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/projection"
	"pairchat/repositories"
)

// Coordinator owns the conversation state shared by two participants:
// it resolves or creates the single conversation of an unordered pair,
// appends messages, flips seen flags, and emits the resulting fan-out
// events. Creation is serialized per pair through a keyed lock table
// on top of the storage-level uniqueness key, so concurrent sends
// between the same two identities can never mint two conversations.
type Coordinator struct {
	mu        sync.Mutex
	pairLocks map[string]*sync.Mutex

	log            *slog.Logger
	conversations  repositories.IConversationRepository
	messages       repositories.IMessageRepository
	users          repositories.IUserRepository
	sidebar        *projection.Sidebar
	events         chan<- event.DomainEvent
	storageTimeout time.Duration
}

func NewCoordinator(
	log *slog.Logger,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	sidebar *projection.Sidebar,
	events chan<- event.DomainEvent,
	storageTimeout time.Duration,
) *Coordinator {
	return &Coordinator{
		pairLocks:      make(map[string]*sync.Mutex),
		log:            log,
		conversations:  conversations,
		messages:       messages,
		users:          users,
		sidebar:        sidebar,
		events:         events,
		storageTimeout: storageTimeout,
	}
}

// lockPair returns the mutex dedicated to the unordered pair, creating
// it on first use. Lock entries are small and bounded by the number of
// pairs that ever talked during the process lifetime.
func (c *Coordinator) lockPair(a, b string) *sync.Mutex {
	key := domain.PairKey(a, b)
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.pairLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.pairLocks[key] = lock
	}
	return lock
}

// SendMessage validates the payload, resolves or creates the pair's
// conversation, appends the message with seen=false, and pushes the
// updated message list and sidebar to both participants. The append
// and the UpdatedAt bump commit atomically in the store adapter.
func (c *Coordinator) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if cmd.SenderID == cmd.ReceiverID {
		return domain.Message{}, errors.ErrSelfConversation
	}
	message := domain.Message{
		ID:        uuid.New(),
		SenderID:  cmd.SenderID,
		Text:      cmd.Text,
		ImageURL:  cmd.ImageURL,
		VideoURL:  cmd.VideoURL,
		Seen:      false,
		CreatedAt: time.Now().UTC(),
	}
	if !message.HasContent() {
		return domain.Message{}, errors.ErrEmptyMessage
	}

	// The receiver must exist before any state is touched.
	if err := c.bounded(ctx, func() error {
		_, err := c.users.GetUserByID(cmd.ReceiverID)
		return err
	}); err != nil {
		return domain.Message{}, err
	}

	var conversation domain.Conversation
	lock := c.lockPair(cmd.SenderID, cmd.ReceiverID)
	lock.Lock()
	err := c.bounded(ctx, func() error {
		var err error
		conversation, _, err = c.conversations.GetOrCreate(cmd.SenderID, cmd.ReceiverID)
		if err != nil {
			return err
		}
		return c.conversations.AppendMessage(conversation, message)
	})
	lock.Unlock()
	if err != nil {
		return domain.Message{}, err
	}

	c.publishConversation(ctx, conversation, &message)
	return message, nil
}

// MarkSeen flags every message authored by the counterpart as seen.
// Monotonic: already-seen messages stay seen, so a double call leaves
// the same state. Silently does nothing when the pair never talked.
func (c *Coordinator) MarkSeen(ctx context.Context, cmd domain.MarkSeenCommand) error {
	var conversation *domain.Conversation
	if err := c.bounded(ctx, func() error {
		var err error
		conversation, err = c.conversations.FindBetween(cmd.ViewerID, cmd.CounterpartID)
		return err
	}); err != nil {
		return err
	}
	if conversation == nil {
		return nil
	}

	if err := c.bounded(ctx, func() error {
		_, err := c.messages.MarkSeen(conversation.ID, cmd.CounterpartID)
		return err
	}); err != nil {
		return err
	}

	c.publishConversation(ctx, *conversation, nil)
	return nil
}

// FetchHistory returns the chronological message sequence of the pair,
// or an empty sequence when no conversation exists. Read-only.
func (c *Coordinator) FetchHistory(ctx context.Context, viewerID, counterpartID string) ([]domain.Message, error) {
	var conversation *domain.Conversation
	if err := c.bounded(ctx, func() error {
		var err error
		conversation, err = c.conversations.FindBetween(viewerID, counterpartID)
		return err
	}); err != nil {
		return nil, err
	}
	if conversation == nil {
		return []domain.Message{}, nil
	}

	var messages []domain.Message
	if err := c.bounded(ctx, func() error {
		var err error
		messages, err = c.messages.GetMessages(conversation.ID)
		return err
	}); err != nil {
		return nil, err
	}
	return messages, nil
}

// publishConversation recomputes the views affected by a conversation
// change and hands them to the dispatcher. Delivery is decoupled from
// persistence: a failure past this point loses at most a live push,
// which the client recovers through request-history or request-sidebar.
func (c *Coordinator) publishConversation(ctx context.Context, conversation domain.Conversation, posted *domain.Message) {
	participants := []string{conversation.Initiator, conversation.Counterpart}

	messages, err := c.messages.GetMessages(conversation.ID)
	if err != nil {
		c.log.Error("Recompute after write failed", "conversation", conversation.ID, "error", err)
		return
	}
	c.emit(event.MessageDelivered{
		ConversationID: conversation.ID,
		Participants:   participants,
		Posted:         posted,
		Messages:       messages,
	})

	for _, userID := range participants {
		views, err := c.sidebar.ConversationList(userID)
		if err != nil {
			c.log.Error("Sidebar recompute failed", "user", userID, "error", err)
			continue
		}
		c.emit(event.SidebarRefreshed{UserID: userID, Views: views})
	}
}

// emit hands an event to the dispatcher without ever blocking the
// caller's session. A full channel drops the event; the state is
// already persisted, so the push is recoverable.
func (c *Coordinator) emit(e event.DomainEvent) {
	select {
	case c.events <- e:
	default:
		c.log.Warn("Event channel full, dropping live push")
	}
}

// bounded runs one storage operation under the configured timeout.
// Storage calls are the only suspension points in the core; when one
// stalls, the caller gets a retryable failure instead of a hung session.
//
// The operation itself is not cancelled: a timed-out write may still
// commit after the failure was reported, so a retry can land on state
// the first attempt already produced. Every mutation here tolerates
// that (appends are keyed by message ID, seen flips are monotonic).
// Late completions are logged so a stalling store shows up in the logs
// twice, once per symptom.
func (c *Coordinator) bounded(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, c.storageTimeout)
	defer cancel()

	started := time.Now()
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		go func() {
			err := <-done
			c.log.Warn("Storage call completed after its deadline",
				"elapsed", time.Since(started), "error", err)
		}()
		return errors.ErrStorageUnavailable
	}
}
