package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
)

func TestSessionScoresAreRanked(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	people := srv.backend.Participants

	alice, err := people.Create(ctx, "482913", "Alice")
	require.NoError(t, err)
	bob, err := people.Create(ctx, "482913", "Bob")
	require.NoError(t, err)
	_, err = people.Create(ctx, "482913", "Carol")
	require.NoError(t, err)
	require.NoError(t, people.UpdateScore(ctx, alice.ID, 2, 1, 3))
	require.NoError(t, people.UpdateScore(ctx, bob.ID, 4, 2, 2))

	resp, err := http.Get(srv.URL + "/sessions/482913/scores")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var lb domain.Leaderboard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lb))
	require.Equal(t, domain.SessionCode("482913"), lb.SessionCode)
	require.Equal(t, domain.SessionWaiting, lb.Status)
	require.Equal(t, 3, lb.TotalParticipants)
	require.Len(t, lb.Entries, 3)

	require.Equal(t, "Bob", lb.Entries[0].Name)
	require.Equal(t, 1, lb.Entries[0].Rank)
	require.Equal(t, 100.0, lb.Entries[0].Accuracy)
	require.Equal(t, "Alice", lb.Entries[1].Name)
	require.Equal(t, 33.33, lb.Entries[1].Accuracy)
	require.Equal(t, "Carol", lb.Entries[2].Name)
	require.Zero(t, lb.Entries[2].Accuracy)
	require.Equal(t, domain.ParticipantWaiting, lb.Entries[2].Status)
}

func TestSessionScoresUnknownSession(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sessions/000000/scores")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, domain.ReasonSessionNotFound, body.Reason)
}
