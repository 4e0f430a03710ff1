package app

import (
	"sync"

	"live-quiz-service/internal/domain"
)

// Binding ties a connection to a session and an identity.
type Binding struct {
	Code        domain.SessionCode
	Participant domain.ParticipantID
}

// Registry tracks every live connection and what it is bound to.
type Registry struct {
	mu       sync.RWMutex
	conns    map[Conn]*Binding
	sessions map[domain.SessionCode]map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[Conn]*Binding),
		sessions: make(map[domain.SessionCode]map[Conn]struct{}),
	}
}

// Register adds an unbound connection. Registering twice is a no-op.
func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		r.conns[c] = nil
	}
}

// Bind attaches c to (code, participant), replacing any earlier binding.
func (r *Registry) Bind(c Conn, code domain.SessionCode, participant domain.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbindLocked(c)
	r.conns[c] = &Binding{Code: code, Participant: participant}
	pool, ok := r.sessions[code]
	if !ok {
		pool = make(map[Conn]struct{})
		r.sessions[code] = pool
	}
	pool[c] = struct{}{}
}

// Unbind drops the binding of c but keeps it registered.
func (r *Registry) Unbind(c Conn) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbindLocked(c)
}

// Deregister forgets c entirely and returns the binding it had, if any.
func (r *Registry) Deregister(c Conn) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return Binding{}, false
	}
	b, ok := r.unbindLocked(c)
	delete(r.conns, c)
	return b, ok
}

func (r *Registry) unbindLocked(c Conn) (Binding, bool) {
	b := r.conns[c]
	if b == nil {
		return Binding{}, false
	}
	if pool, ok := r.sessions[b.Code]; ok {
		delete(pool, c)
		if len(pool) == 0 {
			delete(r.sessions, b.Code)
		}
	}
	r.conns[c] = nil
	return *b, true
}

// Lookup returns the binding of c.
func (r *Registry) Lookup(c Conn) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b := r.conns[c]
	if b == nil {
		return Binding{}, false
	}
	return *b, true
}

// ConnectionsFor returns a copy of the connections bound to code.
// Callers iterate and send without holding the registry lock.
func (r *Registry) ConnectionsFor(code domain.SessionCode) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pool := r.sessions[code]
	out := make([]Conn, 0, len(pool))
	for c := range pool {
		out = append(out, c)
	}
	return out
}

// Stats reports the number of registered connections and of sessions with at least one binding.
func (r *Registry) Stats() (connections, sessions int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.sessions)
}

// Bound reports whether some connection of code is still bound to participant.
func (r *Registry) Bound(code domain.SessionCode, participant domain.ParticipantID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.sessions[code] {
		if b := r.conns[c]; b != nil && b.Participant == participant {
			return true
		}
	}
	return false
}
