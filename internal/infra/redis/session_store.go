package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

// SessionStore is a Redis-aware app.GameStateStore.
// Game state stays in process; Redis only carries a liveness marker per running session
// so operators and other instances can see which codes are live here.
type SessionStore struct {
	local  *memory.SessionStore
	client redis.UniversalClient
	ttl    time.Duration
	// owner identifies this process in the marker value.
	owner string
}

func NewSessionStore(client redis.UniversalClient, ttl time.Duration, owner string) *SessionStore {
	return &SessionStore{
		local:  memory.NewSessionStore(),
		client: client,
		ttl:    ttl,
		owner:  owner,
	}
}

func (s *SessionStore) GetOrCreate(code domain.SessionCode) (*app.GameState, bool) {
	state, created := s.local.GetOrCreate(code)
	if created {
		s.mark(context.Background(), state)
	}
	return state, created
}

func (s *SessionStore) Get(code domain.SessionCode) (*app.GameState, bool) {
	return s.local.Get(code)
}

func (s *SessionStore) Remove(code domain.SessionCode, state *app.GameState) bool {
	if !s.local.Remove(code, state) {
		return false
	}
	// best-effort
	if err := s.client.Del(context.Background(), Key(code)).Err(); err != nil {
		log.Warn().Err(err).Str("session", string(code)).Msg("could not clear session marker")
	}
	return true
}

func (s *SessionStore) All() []*app.GameState {
	return s.local.All()
}

// Refresh extends the markers of every live session.
func (s *SessionStore) Refresh(ctx context.Context) error {
	states := s.local.All()
	if len(states) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, state := range states {
		pipe.Set(ctx, Key(state.Code()), s.value(state), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// KeepAlive refreshes markers every interval until ctx is done.
func (s *SessionStore) KeepAlive(ctx context.Context, clock clockwork.Clock, interval time.Duration) error {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := s.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("session marker refresh failed")
			}
		}
	}
}

// Live reports whether code has a marker, whichever instance owns it.
func (s *SessionStore) Live(ctx context.Context, code domain.SessionCode) (bool, error) {
	n, err := s.client.Exists(ctx, Key(code)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SessionStore) mark(ctx context.Context, state *app.GameState) {
	if err := s.client.Set(ctx, Key(state.Code()), s.value(state), s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("session", string(state.Code())).Msg("could not set session marker")
	}
}

func (s *SessionStore) value(state *app.GameState) string {
	return s.owner + ":" + strconv.FormatInt(state.CreatedAt().Unix(), 10)
}

// Key is the Redis key of the liveness marker of code.
func Key(code domain.SessionCode) string {
	return "quiz:session:" + string(code)
}
