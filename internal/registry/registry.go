package registry

import (
	"sync"
)

// Sink is the delivery end of a live connection. Enqueue must not block: it
// reports false when the connection can no longer accept frames, and the
// caller decides whether to tear the binding down.
type Sink interface {
	Enqueue(frame []byte) bool
	Close()
}

// Binding ties one transport connection to its owning user and room. A user
// may hold several bindings at once (multiple tabs/devices); fan-out targets
// bindings, addressing targets users.
type Binding struct {
	ConnectionID string
	UserID       string
	Username     string
	Zipcode      string
	Sink         Sink
}

// Registry owns the live connection maps behind a single lock. It decides
// fan-out targets and nothing else: no persistence, no network writes under
// the lock.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Binding
	byUser map[string]map[string]*Binding
	byRoom map[string]map[string]*Binding
}

func New() *Registry {
	return &Registry{
		byConn: make(map[string]*Binding),
		byUser: make(map[string]map[string]*Binding),
		byRoom: make(map[string]map[string]*Binding),
	}
}

// Join registers the binding. A re-join with an already-bound connection id is
// a silent no-op; it reports false so callers can skip join side effects.
func (r *Registry) Join(b *Binding) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byConn[b.ConnectionID]; exists {
		return false
	}

	r.byConn[b.ConnectionID] = b
	if r.byUser[b.UserID] == nil {
		r.byUser[b.UserID] = make(map[string]*Binding)
	}
	r.byUser[b.UserID][b.ConnectionID] = b
	if r.byRoom[b.Zipcode] == nil {
		r.byRoom[b.Zipcode] = make(map[string]*Binding)
	}
	r.byRoom[b.Zipcode][b.ConnectionID] = b
	return true
}

// Leave removes the binding and reports whether it was the user's last one.
// Unknown connection ids are ignored. Presence is not touched here: offline is
// decided by the presence TTL, which keeps fast reconnects from flapping.
func (r *Registry) Leave(connectionID string) (*Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byConn[connectionID]
	if !ok {
		return nil, false
	}
	delete(r.byConn, connectionID)

	userConns := r.byUser[b.UserID]
	delete(userConns, connectionID)
	lastForUser := len(userConns) == 0
	if lastForUser {
		delete(r.byUser, b.UserID)
	}

	roomConns := r.byRoom[b.Zipcode]
	delete(roomConns, connectionID)
	if len(roomConns) == 0 {
		delete(r.byRoom, b.Zipcode)
	}

	return b, lastForUser
}

// Get returns the binding for a connection id, if any.
func (r *Registry) Get(connectionID string) (*Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byConn[connectionID]
	return b, ok
}

// ConnectionsForUser returns a snapshot of the user's live bindings.
func (r *Registry) ConnectionsForUser(userID string) []*Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byUser[userID])
}

// ConnectionsForRoom returns a snapshot of all bindings in the room.
func (r *Registry) ConnectionsForRoom(zipcode string) []*Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byRoom[zipcode])
}

func snapshot(m map[string]*Binding) []*Binding {
	out := make([]*Binding, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	return out
}
