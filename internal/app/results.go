package app

import (
	"context"
	"math"
	"sort"
	"time"

	"live-quiz-service/internal/domain"
)

// Results returns the ranked scores of a session from the participant records,
// so it also answers for sessions that are no longer live.
func (e *Engine) Results(ctx context.Context, code domain.SessionCode) (domain.Leaderboard, error) {
	record, err := e.sessions.FindByCode(ctx, code)
	if err != nil {
		return domain.Leaderboard{}, e.collaboratorFailed("find session", err)
	}
	participants, err := e.participants.ListBySession(ctx, code)
	if err != nil {
		return domain.Leaderboard{}, e.collaboratorFailed("list participants", err)
	}
	return buildLeaderboard(record, participants, e.clock.Now()), nil
}

func buildLeaderboard(record domain.SessionRecord, participants []domain.Participant, now time.Time) domain.Leaderboard {
	sorted := make([]domain.Participant, len(participants))
	copy(sorted, participants)
	// Score desc, then whoever joined first, then name.
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		if !sorted[i].JoinedAt.Equal(sorted[j].JoinedAt) {
			return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
		}
		return sorted[i].Name < sorted[j].Name
	})

	entries := make([]domain.LeaderboardEntry, 0, len(sorted))
	for i, p := range sorted {
		rank := i + 1
		if i > 0 && p.TotalScore == sorted[i-1].TotalScore {
			rank = entries[i-1].Rank
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:           rank,
			ParticipantID:  p.ID,
			Name:           p.Name,
			Score:          p.TotalScore,
			CorrectAnswers: p.CorrectAnswers,
			TotalAnswers:   p.TotalAnswers,
			Accuracy:       accuracy(p.CorrectAnswers, p.TotalAnswers),
			Status:         p.Status,
		})
	}

	return domain.Leaderboard{
		SessionCode:       record.Code,
		QuizID:            record.QuizID,
		Status:            record.Status,
		TotalParticipants: len(entries),
		Entries:           entries,
		UpdatedAt:         now,
	}
}

// accuracy is the percentage of correct answers rounded to two decimals.
func accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*100*100) / 100
}
