package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
)

func TestResultsRankLiveAndFinishedSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	host := h.host(t)
	_, p1 := h.join(t, "p1")
	_, p2 := h.join(t, "p2")
	_, p3 := h.join(t, "p3")
	require.NoError(t, h.engine.StartQuiz(ctx, code, host, ""))
	h.start(t)

	_, err := h.submit(p2, "q1", "A")
	require.NoError(t, err)
	_, err = h.submit(p1, "q1", "B")
	require.NoError(t, err)

	lb, err := h.engine.Results(ctx, code)
	require.NoError(t, err)
	require.Equal(t, domain.SessionActive, lb.Status)
	require.Equal(t, "quiz-1", lb.QuizID)
	require.Equal(t, 3, lb.TotalParticipants)

	require.Equal(t, p2, lb.Entries[0].ParticipantID)
	require.Equal(t, 1, lb.Entries[0].Rank)
	require.Equal(t, 10, lb.Entries[0].Score)
	require.Equal(t, 100.0, lb.Entries[0].Accuracy)

	// equal scores share a rank and keep join order
	require.Equal(t, p1, lb.Entries[1].ParticipantID)
	require.Equal(t, p3, lb.Entries[2].ParticipantID)
	require.Equal(t, 2, lb.Entries[1].Rank)
	require.Equal(t, 2, lb.Entries[2].Rank)
	require.Equal(t, 1, lb.Entries[1].TotalAnswers)
	require.Zero(t, lb.Entries[1].Accuracy)
	require.Zero(t, lb.Entries[2].TotalAnswers)
	require.Equal(t, domain.ParticipantPlaying, lb.Entries[2].Status)

	require.NoError(t, h.engine.HostLeft(ctx, host, ""))
	lb, err = h.engine.Results(ctx, code)
	require.NoError(t, err)
	require.Equal(t, domain.SessionFinished, lb.Status)
	require.Empty(t, lb.Entries)
}

func TestResultsUnknownSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Results(context.Background(), "000000")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}
