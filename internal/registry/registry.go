package registry

import (
	"log/slog"
	"net"
	"sync"
	"time"
)

// Client represents one remote tooling endpoint that has sent at least one
// message this session.
type Client struct {
	Endpoint *net.UDPAddr
	LastSeen time.Time
}

// Registry tracks the currently alive clients, keyed by endpoint address.
// All mutation happens on the processing tick; the mutex only bridges the
// tick and the monitoring surfaces that read snapshots.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
	logger  *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Touch registers the endpoint or refreshes its last-seen time, and reports
// whether the endpoint was newly registered. Called once per dispatched
// message, before dispatch, with the message's origin.
func (r *Registry) Touch(endpoint *net.UDPAddr, now time.Time) bool {
	if endpoint == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := endpoint.String()
	if existing, ok := r.clients[key]; ok {
		existing.LastSeen = now
		return false
	}

	r.clients[key] = &Client{Endpoint: endpoint, LastSeen: now}
	return true
}

// Evict removes every client whose silence exceeds threshold and returns
// the removed entries. Runs once per tick whether or not any messages
// arrived.
func (r *Registry) Evict(now time.Time, threshold time.Duration) []Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []Client
	for key, client := range r.clients {
		if now.Sub(client.LastSeen) > threshold {
			evicted = append(evicted, *client)
			delete(r.clients, key)
		}
	}

	return evicted
}

// Snapshot returns a copy of every current client. Callers iterate the copy
// for broadcast and persistence; the live map is never exposed and the
// copied endpoints do not alias registry state.
func (r *Registry) Snapshot() []Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		snapshot = append(snapshot, Client{
			Endpoint: cloneEndpoint(client.Endpoint),
			LastSeen: client.LastSeen,
		})
	}

	return snapshot
}

// cloneEndpoint copies an address including its IP bytes, so mutating the
// copy cannot reach back into the registry.
func cloneEndpoint(endpoint *net.UDPAddr) *net.UDPAddr {
	return &net.UDPAddr{
		IP:   append(net.IP(nil), endpoint.IP...),
		Port: endpoint.Port,
		Zone: endpoint.Zone,
	}
}

// Count returns the number of currently registered clients.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// RefreshAll resets every client's last-seen time to now. Used after a host
// reload completes, so a reload stall is not mistaken for client silence.
func (r *Registry) RefreshAll(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, client := range r.clients {
		client.LastSeen = now
	}
}

// Restore clears the registry and repopulates it from a persisted set,
// assigning LastSeen = now to every restored entry as an optimistic grace
// period. Malformed entries are skipped individually; one corrupt entry
// never aborts the whole restore.
func (r *Registry) Restore(persisted []PersistedClient, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients = make(map[string]*Client, len(persisted))
	for _, entry := range persisted {
		endpoint, err := entry.Endpoint()
		if err != nil {
			r.logger.Warn("Skipping malformed persisted client",
				slog.String("address", entry.Address),
				slog.Int("port", entry.Port),
				slog.String("error", err.Error()),
			)
			continue
		}

		r.clients[endpoint.String()] = &Client{Endpoint: endpoint, LastSeen: now}
	}

	return len(r.clients)
}
