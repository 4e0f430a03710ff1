package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// QuestionRepository caches question snapshots in Redis and falls back to a source on cache miss.
// Snapshots are stored as JSON: SET quiz:{quizID}:questions <json> EX ttl
type QuestionRepository struct {
	client redis.UniversalClient
	source app.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(client redis.UniversalClient, source app.QuestionSource, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) QuestionsForQuiz(ctx context.Context, quizID string) ([]domain.QuestionSnapshot, error) {
	if qs, ok := r.cached(ctx, quizID); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := r.cached(ctx, quizID); ok {
			return qs, nil
		}
		qs, err := r.source.QuestionsForQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(qs)
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(ctx, r.key(quizID), data, r.ttlWithJitter()).Err(); err != nil {
			log.Warn().Err(err).Str("quiz", quizID).Msg("could not cache questions")
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionSnapshot), nil
}

// Invalidate drops the cached snapshot of quizID.
func (r *QuestionRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.key(quizID)).Err()
}

// cached treats any Redis failure as a miss so the source stays authoritative.
func (r *QuestionRepository) cached(ctx context.Context, quizID string) ([]domain.QuestionSnapshot, bool) {
	data, err := r.client.Get(ctx, r.key(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("quiz", quizID).Msg("question cache read failed")
		}
		return nil, false
	}
	var qs []domain.QuestionSnapshot
	if err := json.Unmarshal(data, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (r *QuestionRepository) key(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
