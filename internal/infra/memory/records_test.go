package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
)

func TestParticipantsNamesAreUniquePerSession(t *testing.T) {
	ctx := context.Background()
	p := NewParticipants()

	alice, err := p.Create(ctx, "482913", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, alice.ID)
	require.Equal(t, domain.ParticipantWaiting, alice.Status)

	_, err = p.Create(ctx, "482913", " alice ")
	require.ErrorIs(t, err, domain.ErrNameTaken)

	_, err = p.Create(ctx, "111111", "Alice")
	require.NoError(t, err)
}

func TestParticipantsMarkSessionStatusSkipsDisconnected(t *testing.T) {
	ctx := context.Background()
	p := NewParticipants()

	a, _ := p.Create(ctx, "482913", "A")
	b, _ := p.Create(ctx, "482913", "B")
	require.NoError(t, p.MarkStatus(ctx, b.ID, domain.ParticipantDisconnected))

	require.NoError(t, p.MarkSessionStatus(ctx, "482913", domain.ParticipantFinished, domain.ParticipantDisconnected))

	got, err := p.FindByIdentity(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ParticipantFinished, got.Status)
	require.NotNil(t, got.FinishedAt)

	got, err = p.FindByIdentity(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ParticipantDisconnected, got.Status)

	listed, err := p.ListBySession(ctx, "482913")
	require.NoError(t, err)
	require.Len(t, listed, 2)

	require.NoError(t, p.DeleteBySession(ctx, "482913"))
	listed, err = p.ListBySession(ctx, "482913")
	require.NoError(t, err)
	require.Empty(t, listed)
	_, err = p.FindByIdentity(ctx, a.ID)
	require.ErrorIs(t, err, domain.ErrParticipantNotFound)
}

func TestSessionsLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewSessions()

	_, err := s.FindByCode(ctx, "482913")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	s.Create("482913", "quiz-1")
	require.NoError(t, s.MarkStarted(ctx, "482913"))
	rec, err := s.FindByCode(ctx, "482913")
	require.NoError(t, err)
	require.Equal(t, domain.SessionActive, rec.Status)
	require.NotNil(t, rec.StartedAt)

	require.NoError(t, s.MarkFinished(ctx, "482913"))
	rec, _ = s.FindByCode(ctx, "482913")
	require.Equal(t, domain.SessionFinished, rec.Status)

	require.NoError(t, s.Delete(ctx, "482913"))
	require.ErrorIs(t, s.MarkStarted(ctx, "482913"), domain.ErrSessionNotFound)
}

func TestAnswersCorrectness(t *testing.T) {
	ctx := context.Background()
	a := NewAnswers(NewCatalog(sampleQuiz()))

	ok, err := a.IsCorrect(ctx, "q1", "a2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = a.IsCorrect(ctx, "q1", "a1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = a.IsCorrect(ctx, "q1", "a9")
	require.ErrorIs(t, err, domain.ErrAnswerNotFound)

	ok, err = a.IsTextCorrect(ctx, "q2", "  paris ")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = a.IsTextCorrect(ctx, "nope", "x")
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func TestAnswersRejectDuplicates(t *testing.T) {
	ctx := context.Background()
	a := NewAnswers(NewCatalog(sampleQuiz()))
	ans := domain.ParticipantAnswer{SessionCode: "482913", ParticipantID: "p1", QuestionID: "q1", AnswerID: "a2"}

	require.NoError(t, a.RecordAnswer(ctx, ans))
	require.ErrorIs(t, a.RecordAnswer(ctx, ans), domain.ErrDuplicateSubmission)
	require.Len(t, a.ForSession("482913"), 1)

	require.NoError(t, a.DeleteBySession(ctx, "482913"))
	require.Empty(t, a.ForSession("482913"))
}
