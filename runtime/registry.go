// Package runtime coordinates presence, conversation state and event
// propagation. It contains no transport or storage internals.
package runtime

import (
	"sync"

	"pairchat/contract"
)

type sessionSet map[string]contract.EventSink

// Registry is the process-wide presence registry. One entry per online
// identity, holding every live session bound to it (one per tab or
// device). The entry appears on first bind and disappears when its
// last session unbinds; it is never persisted, so a fresh process
// always starts with nobody online.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]sessionSet // user -> session id -> sink
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]sessionSet)}
}

// Bind attaches a session sink to the user's entry, creating the entry
// if absent. Binding the same session twice only overwrites the sink,
// it never counts double.
func (r *Registry) Bind(userID, sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; !ok {
		r.sessions[userID] = make(sessionSet)
	}
	r.sessions[userID][sessionID] = sink
}

// Unbind detaches one session. When the user's set becomes empty the
// entry is removed entirely, so no empty sets linger in the map.
// Unbinding a session that was never bound is a no-op.
func (r *Registry) Unbind(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[userID]
	if !ok {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(r.sessions, userID)
	}
}

// IsOnline reports whether the identity has at least one live session.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID]) > 0
}

// Snapshot returns every currently online identity.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	online := make([]string, 0, len(r.sessions))
	for userID := range r.sessions {
		online = append(online, userID)
	}
	return online
}

// SinksFor returns the sinks of every session bound to the user.
// Nil when the user is offline; delivery to an offline user is a
// silent no-op.
func (r *Registry) SinksFor(userID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(set))
	for _, sink := range set {
		sinks = append(sinks, sink)
	}
	return sinks
}

// AllSinks returns every bound sink across all users, the fan-out
// target for presence broadcasts.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, set := range r.sessions {
		for _, sink := range set {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}
