package memory

import (
	"sync"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.GameStateStore.
type SessionStore struct {
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[domain.SessionCode]*app.GameState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		clock:    time.Now,
		sessions: make(map[domain.SessionCode]*app.GameState),
	}
}

func (s *SessionStore) GetOrCreate(code domain.SessionCode) (*app.GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.sessions[code]; ok {
		return state, false
	}
	state := app.NewGameState(code, s.clock())
	s.sessions[code] = state
	return state, true
}

func (s *SessionStore) Get(code domain.SessionCode) (*app.GameState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[code]
	return state, ok
}

// Remove deletes code only if it still maps to state.
func (s *SessionStore) Remove(code domain.SessionCode, state *app.GameState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[code]; !ok || cur != state {
		return false
	}
	delete(s.sessions, code)
	return true
}

func (s *SessionStore) All() []*app.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.GameState, 0, len(s.sessions))
	for _, state := range s.sessions {
		out = append(out, state)
	}
	return out
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
