package messenger

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackerzhuli/editor-messaging-service/internal/config"
	"github.com/hackerzhuli/editor-messaging-service/internal/metrics"
	"github.com/hackerzhuli/editor-messaging-service/internal/protocol"
	"github.com/hackerzhuli/editor-messaging-service/internal/queue"
	"github.com/hackerzhuli/editor-messaging-service/internal/registry"
	"github.com/hackerzhuli/editor-messaging-service/internal/store"
)

// ClientsKey is the settings key the registered client set persists under.
const ClientsKey = "Messaging.Clients"

// State describes where a session is in its lifecycle. Transitions only
// move forward; a closed session never rebinds.
type State int

const (
	// StateUninitialized means the session exists but has not attempted
	// its socket bind yet. The bind happens on the first tick.
	StateUninitialized State = iota
	// StateBinding means the bind attempt is in progress on the current tick.
	StateBinding
	// StateActive means the socket is bound and messages flow.
	StateActive
	// StateShuttingDown means Shutdown is tearing the session down.
	StateShuttingDown
	// StateClosed means the session released its resources and does
	// nothing further.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBinding:
		return "binding"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ShutdownReason distinguishes an orderly teardown from a process quit.
type ShutdownReason int

const (
	// ShutdownTeardown persists the client set so the next session can
	// restore it.
	ShutdownTeardown ShutdownReason = iota
	// ShutdownQuit skips persistence; the process is going away and the
	// clients should rediscover the next one themselves.
	ShutdownQuit
)

// String returns a human-readable reason name.
func (r ShutdownReason) String() string {
	switch r {
	case ShutdownTeardown:
		return "teardown"
	case ShutdownQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of session health for the
// monitoring API.
type Stats struct {
	SessionID     string `json:"session_id"`
	State         string `json:"state"`
	Port          int    `json:"port"`
	Clients       int    `json:"clients"`
	QueueLength   int    `json:"queue_length"`
	QueueCapacity int    `json:"queue_capacity"`
	QueueDropped  uint64 `json:"queue_dropped"`
}

// Session is one messaging lifetime: a socket bind, a client registry
// and the message traffic between them. The receive goroutine only
// enqueues; every other mutation happens on the scheduler tick.
type Session struct {
	id        string
	cfg       config.MessagingConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
	settings  *store.Store // nil disables persistence
	scheduler Scheduler

	registry   *registry.Registry
	inbound    *queue.Queue
	transport  *Transport
	dispatcher *dispatcher

	port          int
	clientTimeout time.Duration

	mu            sync.Mutex
	state         State
	unregisterFns []func()
}

// NewSession wires a session against the host and scheduler. It does not
// bind the socket; that is deferred to the first scheduler tick so a
// bind failure surfaces inside the normal tick flow. Callers resolve the
// port before construction; port 0 asks the OS for an ephemeral one.
func NewSession(
	cfg config.MessagingConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
	settings *store.Store,
	host Host,
	tests TestRunner,
	scheduler Scheduler,
) *Session {
	s := &Session{
		id:            uuid.NewString(),
		cfg:           cfg,
		logger:        logger,
		metrics:       m,
		settings:      settings,
		scheduler:     scheduler,
		registry:      registry.New(logger),
		inbound:       queue.New(cfg.QueueCapacity),
		port:          cfg.Port,
		clientTimeout: cfg.GetClientTimeout(),
		state:         StateUninitialized,
	}

	s.transport = newTransport(logger, m, cfg.BufferSize, s.onReceive)
	s.dispatcher = newDispatcher(logger, host, tests, s.transport.Send, s.Stop)

	return s
}

// Start hooks the session into the scheduler. The socket bind happens on
// the first tick after Start.
func (s *Session) Start() {
	s.mu.Lock()
	s.unregisterFns = append(s.unregisterFns,
		s.scheduler.OnEveryTick(s.tick),
		s.scheduler.OnBeforeQuit(func() { s.Shutdown(ShutdownQuit) }),
		s.scheduler.OnAfterReloadCompleted(s.onReloadCompleted),
	)
	s.mu.Unlock()

	s.logger.Info("Messaging session starting",
		slog.String("session_id", s.id),
		slog.Int("port", s.port),
	)
}

// Stop tears the session down and persists the client set for the next
// session to restore. Safe to call more than once.
func (s *Session) Stop() {
	s.Shutdown(ShutdownTeardown)
}

// Shutdown moves the session to closed. Only the first call does work;
// subsequent calls, with any reason, are no-ops.
func (s *Session) Shutdown(reason ShutdownReason) {
	s.mu.Lock()
	if s.state == StateShuttingDown || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateShuttingDown
	fns := s.unregisterFns
	s.unregisterFns = nil
	s.mu.Unlock()

	s.logger.Info("Messaging session shutting down",
		slog.String("session_id", s.id),
		slog.String("reason", reason.String()),
	)

	if reason != ShutdownQuit {
		s.persistClients()
	}

	for _, fn := range fns {
		fn()
	}

	s.transport.Close()

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()

	s.logger.Info("Messaging session closed", slog.String("session_id", s.id))
}

// Broadcast sends one message to every registered client, best effort.
// An unbound or closed session drops the broadcast silently.
func (s *Session) Broadcast(kind protocol.Kind, payload string) {
	if s.State() != StateActive {
		return
	}

	clients := s.registry.Snapshot()
	for i := range clients {
		s.transport.Send(clients[i].Endpoint, kind, payload)
	}

	if len(clients) > 0 {
		s.metrics.RecordBroadcast()
	}
}

// ID returns the session's unique instance identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Port returns the messaging port the session binds, or bound, to.
func (s *Session) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Clients returns a snapshot of the registered client set.
func (s *Session) Clients() []registry.Client {
	return s.registry.Snapshot()
}

// GetStats returns a snapshot for the monitoring API.
func (s *Session) GetStats() Stats {
	return Stats{
		SessionID:     s.id,
		State:         s.State().String(),
		Port:          s.Port(),
		Clients:       s.registry.Count(),
		QueueLength:   s.inbound.Len(),
		QueueCapacity: s.inbound.Capacity(),
		QueueDropped:  s.inbound.Dropped(),
	}
}

// onReceive runs on the receive goroutine. It only enqueues; decoding
// already happened in the transport and everything else waits for the
// next tick.
func (s *Session) onReceive(msg *protocol.Message) {
	if !s.inbound.Enqueue(msg) {
		s.metrics.RecordMessageDropped()
		s.logger.Warn("Inbound queue full, dropping message",
			slog.String("kind", msg.Kind.String()),
			slog.String("origin", msg.Origin.String()),
		)
	}
}

// tick is the session's unit of work on the scheduler. The first tick
// binds the socket; active ticks drain the queue and evict stale clients.
func (s *Session) tick() {
	switch s.State() {
	case StateUninitialized:
		s.bind()
	case StateActive:
		s.processInbound()
		s.evictStale()
		s.metrics.SetConnectedClients(s.registry.Count())
		s.metrics.SetQueueSize(s.inbound.Len())
	}
}

// bind attempts the socket bind once. On failure the session closes for
// the rest of the process lifetime instead of retrying; the derived port
// is stable, so a retry would fight the same occupant every tick.
func (s *Session) bind() {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return
	}
	s.state = StateBinding
	s.mu.Unlock()

	s.restoreClients()

	if err := s.transport.Bind(s.cfg.BindAddress, s.port); err != nil {
		s.logger.Warn("Messaging bind failed, session disabled",
			slog.Int("port", s.port),
			slog.String("error", err.Error()),
		)

		s.mu.Lock()
		// A shutdown that raced the bind owns the rest of the teardown.
		if s.state != StateBinding {
			s.mu.Unlock()
			return
		}
		s.state = StateClosed
		fns := s.unregisterFns
		s.unregisterFns = nil
		s.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
		return
	}

	s.mu.Lock()
	// Closed is terminal. If a shutdown completed while the bind was in
	// flight, release the just-bound socket instead of going active.
	if s.state != StateBinding {
		s.mu.Unlock()
		s.transport.Close()
		return
	}
	s.state = StateActive
	if addr := s.transport.LocalAddr(); addr != nil {
		s.port = addr.Port
	}
	s.mu.Unlock()

	s.logger.Info("Messaging session active",
		slog.String("session_id", s.id),
		slog.Int("port", s.port),
		slog.Int("restored_clients", s.registry.Count()),
	)
}

// processInbound drains the queue and dispatches in arrival order. Every
// message refreshes its sender's liveness before dispatch, so even a
// no-op legacy message keeps a client registered.
func (s *Session) processInbound() {
	msgs := s.inbound.DrainAll()
	now := time.Now()

	for _, msg := range msgs {
		if s.registry.Touch(msg.Origin, now) {
			s.metrics.RecordClientRegistered()
			s.logger.Info("Client connected",
				slog.String("remote_addr", msg.Origin.String()),
			)
		}

		s.dispatcher.dispatch(msg)
		s.metrics.RecordMessageProcessed()

		// A handler can stop the session (play mode does). The rest of
		// the drained batch is stale at that point.
		if s.State() != StateActive {
			break
		}
	}
}

// evictStale drops clients that stayed silent past the liveness timeout.
func (s *Session) evictStale() {
	evicted := s.registry.Evict(time.Now(), s.clientTimeout)
	for i := range evicted {
		s.metrics.RecordClientEvicted()
		s.logger.Info("Client timed out",
			slog.String("remote_addr", evicted[i].Endpoint.String()),
			slog.Duration("timeout", s.clientTimeout),
		)
	}
}

// onReloadCompleted refreshes every client's liveness so the reload
// pause does not read as client silence.
func (s *Session) onReloadCompleted() {
	if s.State() != StateActive {
		return
	}

	s.registry.RefreshAll(time.Now())
	s.logger.Debug("Reload completed, client liveness refreshed",
		slog.Int("clients", s.registry.Count()),
	)
}

// restoreClients seeds the registry from the persisted client set, if
// persistence is available and a previous session left one behind.
func (s *Session) restoreClients() {
	if s.settings == nil {
		return
	}

	value, ok, err := s.settings.Get(ClientsKey)
	if err != nil {
		s.logger.Warn("Failed to read persisted clients",
			slog.String("key", ClientsKey),
			slog.String("error", err.Error()),
		)
		return
	}
	if !ok {
		return
	}

	persisted, err := registry.DecodeClients(value)
	if err != nil {
		s.logger.Warn("Discarding unreadable persisted clients",
			slog.String("key", ClientsKey),
			slog.String("error", err.Error()),
		)
		return
	}

	restored := s.registry.Restore(persisted, time.Now())
	if restored > 0 {
		s.metrics.RecordClientsRestored(restored)
		s.logger.Info("Restored persisted clients",
			slog.Int("restored", restored),
			slog.Int("persisted", len(persisted)),
		)
	}
}

// persistClients writes the current client set under ClientsKey. A write
// failure is logged and the shutdown continues; losing the set only
// costs clients a re-registration ping.
func (s *Session) persistClients() {
	if s.settings == nil {
		return
	}

	encoded, err := registry.EncodeClients(s.registry.Snapshot())
	if err != nil {
		s.logger.Warn("Failed to encode client set for persistence",
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.settings.Put(ClientsKey, encoded); err != nil {
		s.logger.Warn("Failed to persist client set",
			slog.String("key", ClientsKey),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Debug("Persisted client set",
		slog.Int("clients", s.registry.Count()),
	)
}

// LocalAddr returns the bound socket address, or nil while unbound. It
// exists for tests and the monitoring API; production code uses Port.
func (s *Session) LocalAddr() *net.UDPAddr {
	return s.transport.LocalAddr()
}
