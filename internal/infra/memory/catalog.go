package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/domain"
)

// Catalog is quiz content held in memory. It serves question sequences and answer keys.
type Catalog struct {
	mu        sync.RWMutex
	quizzes   map[string]domain.Quiz
	questions map[string]domain.QuestionSnapshot
}

func NewCatalog(quizzes ...domain.Quiz) *Catalog {
	c := &Catalog{
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string]domain.QuestionSnapshot),
	}
	for _, q := range quizzes {
		c.Add(q)
	}
	return c
}

// Add stores quiz, replacing an earlier quiz with the same id.
func (c *Catalog) Add(quiz domain.Quiz) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.quizzes[quiz.ID]; ok {
		for _, q := range prev.Questions {
			delete(c.questions, q.ID)
		}
	}
	c.quizzes[quiz.ID] = quiz
	for _, q := range quiz.Questions {
		c.questions[q.ID] = q
	}
}

// QuestionsForQuiz returns the questions of quizID ordered by their order field.
func (c *Catalog) QuestionsForQuiz(_ context.Context, quizID string) ([]domain.QuestionSnapshot, error) {
	c.mu.RLock()
	quiz, ok := c.quizzes[quizID]
	c.mu.RUnlock()
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	qs := clone(quiz.Questions)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	return qs, nil
}

func (c *Catalog) Question(id string) (domain.QuestionSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.questions[id]
	return q, ok
}
