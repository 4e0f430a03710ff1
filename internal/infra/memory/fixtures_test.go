package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
)

const fixturesYAML = `
quizzes:
  - id: quiz-1
    title: Warm up
    questions:
      - id: q1
        text: What is 2 + 2?
        order: 1
        points: 2
        timeLimit: 10
        type: MULTIPLE_CHOICE
        answers:
          - {id: a1, text: "3", order: 1}
          - {id: a2, text: "4", order: 2, correct: true}
      - id: q2
        text: Capital of France?
        order: 2
        type: TEXT
        answers:
          - {id: a3, text: Paris, correct: true}
sessions:
  - code: "482913"
    quizId: quiz-1
`

func TestDecodeFixtures(t *testing.T) {
	fx, err := DecodeFixtures(strings.NewReader(fixturesYAML))
	require.NoError(t, err)
	require.Len(t, fx.Quizzes, 1)
	require.Len(t, fx.Quizzes[0].Questions, 2)
	require.Equal(t, 10, fx.Quizzes[0].Questions[0].TimeLimit)
	require.True(t, fx.Quizzes[0].Questions[0].Answers[1].Correct)
	require.Equal(t, []SessionFixture{{Code: "482913", QuizID: "quiz-1"}}, fx.Sessions)
}

func TestLoadFixturesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixturesYAML), 0o600))

	fx, err := LoadFixtures(path)
	require.NoError(t, err)

	b := NewBackend(fx)
	rec, err := b.Sessions.FindByCode(context.Background(), "482913")
	require.NoError(t, err)
	require.Equal(t, "quiz-1", rec.QuizID)
	require.Equal(t, domain.SessionWaiting, rec.Status)

	qs, err := b.Catalog.QuestionsForQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.Equal(t, "q1", qs[0].ID)
}

func TestDecodeFixturesRejectsUnknownQuiz(t *testing.T) {
	_, err := DecodeFixtures(strings.NewReader(`
sessions:
  - code: "1"
    quizId: nope
`))
	require.ErrorContains(t, err, "unknown quiz")
}

func TestDecodeFixturesRejectsUnknownFields(t *testing.T) {
	_, err := DecodeFixtures(strings.NewReader("quizes: []\n"))
	require.Error(t, err)
}
