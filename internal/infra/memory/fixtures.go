package memory

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"live-quiz-service/internal/domain"
)

// Fixtures is the YAML document describing demo quizzes and the sessions opened for them.
type Fixtures struct {
	Quizzes  []domain.Quiz    `yaml:"quizzes"`
	Sessions []SessionFixture `yaml:"sessions"`
}

type SessionFixture struct {
	Code   string `yaml:"code"`
	QuizID string `yaml:"quizId"`
}

// LoadFixtures reads and validates a fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return DecodeFixtures(f)
}

func DecodeFixtures(r io.Reader) (Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return Fixtures{}, err
	}
	return fx, nil
}

// Validate checks ids are unique and every session points at a known quiz.
func (fx Fixtures) Validate() error {
	quizzes := make(map[string]struct{}, len(fx.Quizzes))
	questions := make(map[string]struct{})
	for _, q := range fx.Quizzes {
		if q.ID == "" {
			return errors.New("fixtures: quiz without id")
		}
		if _, dup := quizzes[q.ID]; dup {
			return fmt.Errorf("fixtures: duplicate quiz %q", q.ID)
		}
		quizzes[q.ID] = struct{}{}
		for _, qs := range q.Questions {
			if qs.ID == "" {
				return fmt.Errorf("fixtures: quiz %q has a question without id", q.ID)
			}
			if _, dup := questions[qs.ID]; dup {
				return fmt.Errorf("fixtures: duplicate question %q", qs.ID)
			}
			questions[qs.ID] = struct{}{}
		}
	}
	codes := make(map[string]struct{}, len(fx.Sessions))
	for _, s := range fx.Sessions {
		if s.Code == "" {
			return errors.New("fixtures: session without code")
		}
		if _, dup := codes[s.Code]; dup {
			return fmt.Errorf("fixtures: duplicate session %q", s.Code)
		}
		codes[s.Code] = struct{}{}
		if _, ok := quizzes[s.QuizID]; !ok {
			return fmt.Errorf("fixtures: session %q references unknown quiz %q", s.Code, s.QuizID)
		}
	}
	return nil
}

// Backend bundles the in-memory collaborators of the engine.
type Backend struct {
	Catalog      *Catalog
	Participants *Participants
	Sessions     *Sessions
	Answers      *Answers
}

// NewBackend builds collaborators preloaded with fx.
func NewBackend(fx Fixtures) *Backend {
	catalog := NewCatalog(fx.Quizzes...)
	b := &Backend{
		Catalog:      catalog,
		Participants: NewParticipants(),
		Sessions:     NewSessions(),
		Answers:      NewAnswers(catalog),
	}
	for _, s := range fx.Sessions {
		b.Sessions.Create(domain.SessionCode(s.Code), s.QuizID)
	}
	return b
}
