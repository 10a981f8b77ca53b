package runtime

import (
	"context"
	"log/slog"
	"time"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/projection"
	"pairchat/repositories"
	"pairchat/runtime/workers"
)

// Orchestrator wires the presence registry, the coordinator and the
// fan-out pipeline together, and owns their lifecycle. It carries no
// domain rules of its own.
type Orchestrator struct {
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       *Registry
	coordinator    *Coordinator
	sidebar        *projection.Sidebar
	users          repositories.IUserRepository
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
	metricInterval time.Duration
}

func NewOrchestrator(
	log *slog.Logger,
	supervisor *workers.Supervisor,
	registry *Registry,
	coordinator *Coordinator,
	sidebar *projection.Sidebar,
	users repositories.IUserRepository,
	events chan event.DomainEvent,
	sinkTimeout, metricInterval time.Duration,
) *Orchestrator {
	return &Orchestrator{
		log:            log,
		supervisor:     supervisor,
		registry:       registry,
		coordinator:    coordinator,
		sidebar:        sidebar,
		users:          users,
		events:         events,
		sinkTimeout:    sinkTimeout,
		metricInterval: metricInterval,
	}
}

// Add registers permanent sinks (search index, telemetry) consuming
// every fanned-out event regardless of targets.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// BindSession attaches an authenticated session to its identity and
// broadcasts the refreshed online set to every connected session.
func (o *Orchestrator) BindSession(userID, sessionID string, sink contract.EventSink) {
	o.registry.Bind(userID, sessionID, sink)
	o.publishPresence()
}

// UnbindSession detaches a session. Safe for sessions that never
// reached the registry; the presence broadcast only fires when an
// entry actually changed.
func (o *Orchestrator) UnbindSession(userID, sessionID string) {
	wasOnline := o.registry.IsOnline(userID)
	o.registry.Unbind(userID, sessionID)
	if wasOnline || o.registry.IsOnline(userID) {
		o.publishPresence()
	}
}

func (o *Orchestrator) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	return o.coordinator.SendMessage(ctx, cmd)
}

func (o *Orchestrator) MarkSeen(ctx context.Context, cmd domain.MarkSeenCommand) error {
	return o.coordinator.MarkSeen(ctx, cmd)
}

func (o *Orchestrator) FetchHistory(ctx context.Context, viewerID, counterpartID string) ([]domain.Message, error) {
	return o.coordinator.FetchHistory(ctx, viewerID, counterpartID)
}

func (o *Orchestrator) ConversationList(viewerID string) ([]domain.ConversationView, error) {
	return o.sidebar.ConversationList(viewerID)
}

// publishPresence resolves the current online set to public identities
// and queues the broadcast. Identities that vanished from storage are
// skipped rather than failing the whole broadcast.
func (o *Orchestrator) publishPresence() {
	var online []domain.UserIdentity
	for _, userID := range o.registry.Snapshot() {
		user, err := o.users.GetUserByID(userID)
		if err != nil {
			o.log.Warn("Online identity not resolvable", "user", userID, "error", err)
			continue
		}
		online = append(online, user.Identity().Public())
	}

	select {
	case o.events <- event.PresenceUpdated{Online: online}:
	default:
		o.log.Warn("Event channel full, dropping presence broadcast")
	}
}

// Start registers the fanout and health workers with the supervisor
// and runs them. Blocks until Stop or parent context cancellation.
func (o *Orchestrator) Start(ctx context.Context) error {
	fanout := workers.NewEventFanout(o.log, o.registry, o.permanentSinks, o.events, o.sinkTimeout)
	health := workers.NewHealthMonitoringWorker(o.log, o.registry, o.events, o.metricInterval)

	o.supervisor.Add(fanout)
	o.supervisor.Add(health)

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown: workers observe the canceled
// context and drain out.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
