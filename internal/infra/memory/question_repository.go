package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// QuestionRepository caches question sequences with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	source app.QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.QuestionSnapshot
	expiresAt time.Time
}

func NewQuestionRepository(source app.QuestionSource, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

func (r *QuestionRepository) QuestionsForQuiz(ctx context.Context, quizID string) ([]domain.QuestionSnapshot, error) {
	if qs, ok := r.cached(quizID); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if qs, ok := r.cached(quizID); ok {
			return qs, nil
		}
		qs, err := r.source.QuestionsForQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[quizID] = cachedQuestions{
			questions: qs,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(result.([]domain.QuestionSnapshot)), nil
}

// Invalidate drops the cached sequence of quizID.
func (r *QuestionRepository) Invalidate(quizID string) {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
}

func (r *QuestionRepository) cached(quizID string) ([]domain.QuestionSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return clone(entry.questions), true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func clone(qs []domain.QuestionSnapshot) []domain.QuestionSnapshot {
	out := make([]domain.QuestionSnapshot, len(qs))
	copy(out, qs)
	return out
}
