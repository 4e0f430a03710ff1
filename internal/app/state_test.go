package app

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
)

func TestGameStateStartsBeforeFirstQuestion(t *testing.T) {
	s := NewGameState("123456", time.Unix(0, 0))
	require.Equal(t, notStarted, s.CurrentIndex())
	require.Nil(t, s.Questions())
	_, ok := s.CurrentQuestion()
	require.False(t, ok)

	require.True(t, s.installQuestions([]domain.QuestionSnapshot{{ID: "q1"}, {ID: "q2"}}))
	require.False(t, s.installQuestions([]domain.QuestionSnapshot{{ID: "other"}}))
	require.Len(t, s.Questions(), 2)

	s.index.Store(1)
	q, ok := s.CurrentQuestion()
	require.True(t, ok)
	require.Equal(t, "q2", q.ID)

	s.index.Store(2)
	_, ok = s.CurrentQuestion()
	require.False(t, ok)
}

func TestScoreboardNeverDecreases(t *testing.T) {
	b := newScoreboard()
	b.ensure("p1")
	require.Equal(t, map[string]int{"p1": 0}, b.snapshot())

	require.Equal(t, 5, b.add("p1", 5))
	require.Equal(t, 5, b.add("p1", -3))
	require.Equal(t, 5, b.add("p1", 0))
	b.ensure("p1")
	require.Equal(t, 5, b.get("p1"))
}

func TestScoredGuardClaimsOnce(t *testing.T) {
	g := newScoredGuard()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.claim("q1", "p1") {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, won)
	require.True(t, g.contains("q1", "p1"))
	require.False(t, g.contains("q2", "p1"))

	g.release("q1", "p1")
	require.False(t, g.contains("q1", "p1"))
	require.True(t, g.claim("q1", "p1"))
}

func TestIDSet(t *testing.T) {
	s := newIDSet()
	require.True(t, s.add("a"))
	require.False(t, s.add("a"))
	require.True(t, s.add("b"))
	require.ElementsMatch(t, []domain.ParticipantID{"a", "b"}, s.list())

	removed, left := s.remove("a")
	require.True(t, removed)
	require.Equal(t, 1, left)
	removed, left = s.remove("a")
	require.False(t, removed)
	require.Equal(t, 1, left)

	s.clear()
	require.Zero(t, s.len())
}

func TestArmTimerRefusesStaleIndex(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewGameState("123456", clock.Now())
	s.index.Store(0)

	first := clock.AfterFunc(time.Minute, func() {})
	require.True(t, s.armTimer(first, 0))
	require.True(t, s.hasTimer())

	s.index.Store(1)
	stale := clock.AfterFunc(time.Minute, func() {})
	assert.False(t, s.armTimer(stale, 0))
	stale.Stop()

	second := clock.AfterFunc(time.Minute, func() {})
	require.True(t, s.armTimer(second, 1))
	// arming stops the previous timer
	require.False(t, first.Stop())

	s.cancelTimer()
	require.False(t, s.hasTimer())
}

func TestTerminateStopsTimerOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewGameState("123456", clock.Now())
	s.index.Store(0)

	fired := make(chan struct{}, 1)
	require.True(t, s.armTimer(clock.AfterFunc(time.Second, func() { fired <- struct{}{} }), 0))

	require.True(t, s.terminate())
	require.False(t, s.terminate())
	require.True(t, s.Terminated())
	require.False(t, s.hasTimer())

	clock.Advance(time.Minute)
	select {
	case <-fired:
		t.Fatal("timer fired after terminate")
	case <-time.After(20 * time.Millisecond):
	}
	require.False(t, s.armTimer(clock.AfterFunc(time.Second, func() {}), 0))
}

func TestMarkAnsweredIgnoresQuestionsNoLongerAsked(t *testing.T) {
	s := NewGameState("123456", time.Now())
	s.installQuestions([]domain.QuestionSnapshot{{ID: "q1"}, {ID: "q2"}})
	s.participants.add("p1")
	require.False(t, s.markAnswered("q1", "p1"))

	s.index.Store(0)
	require.True(t, s.markAnswered("q1", "p1"))
	require.False(t, s.markAnswered("q1", "stranger"))

	s.index.Store(1)
	s.answered.clear()
	require.False(t, s.markAnswered("q1", "p1"))
	require.Empty(t, s.Answered())
}

func TestClosingBlocksNewCommitsAndWaitsForRunningOnes(t *testing.T) {
	s := NewGameState("123456", time.Now())
	require.True(t, s.enterCommit())

	closed := make(chan struct{})
	go func() {
		s.beginClosing()
		close(closed)
	}()
	require.Eventually(t, s.Closing, time.Second, time.Millisecond)
	require.False(t, s.enterCommit())
	select {
	case <-closed:
		t.Fatal("closing finished while a commit was running")
	default:
	}

	s.exitCommit()
	<-closed
	s.abortClosing()
	require.False(t, s.Closing())
	require.True(t, s.enterCommit())
	s.exitCommit()

	s.terminate()
	require.False(t, s.enterCommit())
}
