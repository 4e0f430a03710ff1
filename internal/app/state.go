package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"live-quiz-service/internal/domain"
)

const notStarted = -1

// GameState is the authoritative in-memory state of one running session.
// Every collection is safe on its own; there is no session-wide lock.
type GameState struct {
	code      domain.SessionCode
	createdAt time.Time

	participants *idSet
	answered     *idSet
	scores       *scoreboard
	scored       *scoredGuard

	questions atomic.Pointer[[]domain.QuestionSnapshot]
	index     atomic.Int64
	done      atomic.Bool

	// commitMu is held shared by submissions while they write records;
	// host cleanup takes it exclusively after raising closing.
	commitMu sync.RWMutex
	closing  atomic.Bool

	timerMu sync.Mutex
	timer   clockwork.Timer
}

// NewGameState is exported for the store implementations.
func NewGameState(code domain.SessionCode, now time.Time) *GameState {
	s := &GameState{
		code:         code,
		createdAt:    now,
		participants: newIDSet(),
		answered:     newIDSet(),
		scores:       newScoreboard(),
		scored:       newScoredGuard(),
	}
	s.index.Store(notStarted)
	return s
}

func (s *GameState) Code() domain.SessionCode { return s.code }

func (s *GameState) CreatedAt() time.Time { return s.createdAt }

// CurrentIndex is -1 before the first question and len(questions) once completed.
func (s *GameState) CurrentIndex() int {
	return int(s.index.Load())
}

// Questions returns the snapshot installed at start, or nil.
func (s *GameState) Questions() []domain.QuestionSnapshot {
	qs := s.questions.Load()
	if qs == nil {
		return nil
	}
	return *qs
}

// CurrentQuestion returns the question being asked, if any.
func (s *GameState) CurrentQuestion() (domain.QuestionSnapshot, bool) {
	qs := s.Questions()
	i := s.CurrentIndex()
	if i < 0 || i >= len(qs) {
		return domain.QuestionSnapshot{}, false
	}
	return qs[i], true
}

func (s *GameState) question(id string) (domain.QuestionSnapshot, bool) {
	for _, q := range s.Questions() {
		if q.ID == id {
			return q, true
		}
	}
	return domain.QuestionSnapshot{}, false
}

// installQuestions sets the sequence once; later calls report false.
func (s *GameState) installQuestions(qs []domain.QuestionSnapshot) bool {
	cp := make([]domain.QuestionSnapshot, len(qs))
	copy(cp, qs)
	return s.questions.CompareAndSwap(nil, &cp)
}

func (s *GameState) Participants() []domain.ParticipantID { return s.participants.list() }

func (s *GameState) HasParticipant(id domain.ParticipantID) bool { return s.participants.has(id) }

func (s *GameState) ParticipantCount() int { return s.participants.len() }

func (s *GameState) Answered() []domain.ParticipantID { return s.answered.list() }

// markAnswered records id as having answered questionID, unless the session already moved on.
// The index is read under the set's lock, so an add cannot survive the clear that follows an advance.
func (s *GameState) markAnswered(questionID string, id domain.ParticipantID) bool {
	s.answered.mu.Lock()
	defer s.answered.mu.Unlock()
	if cur, ok := s.CurrentQuestion(); !ok || cur.ID != questionID || !s.participants.has(id) {
		return false
	}
	s.answered.m[id] = struct{}{}
	return true
}

func (s *GameState) Score(id domain.ParticipantID) int { return s.scores.get(id) }

func (s *GameState) Scores() map[string]int { return s.scores.snapshot() }

// Terminated reports whether the session reached a terminal state.
func (s *GameState) Terminated() bool { return s.done.Load() }

// Closing reports whether the host cleanup is in progress.
func (s *GameState) Closing() bool { return s.closing.Load() }

// enterCommit admits a submission into its record writes unless the session is closing or over.
// A successful call must be paired with exitCommit.
func (s *GameState) enterCommit() bool {
	if s.closing.Load() {
		return false
	}
	s.commitMu.RLock()
	if s.closing.Load() || s.done.Load() {
		s.commitMu.RUnlock()
		return false
	}
	return true
}

func (s *GameState) exitCommit() { s.commitMu.RUnlock() }

// beginClosing refuses new submissions, then waits for the in-flight ones to finish writing.
func (s *GameState) beginClosing() {
	s.closing.Store(true)
	s.commitMu.Lock()
	s.commitMu.Unlock()
}

func (s *GameState) abortClosing() { s.closing.Store(false) }

// terminate flips the terminal flag once and cancels any pending timer.
func (s *GameState) terminate() bool {
	s.timerMu.Lock()
	ok := s.done.CompareAndSwap(false, true)
	if ok && s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerMu.Unlock()
	return ok
}

// armTimer installs t as the timer of question i, stopping the previous one.
// It refuses when the session already moved past i or terminated.
func (s *GameState) armTimer(t clockwork.Timer, i int) bool {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.done.Load() || s.CurrentIndex() != i {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = t
	return true
}

func (s *GameState) cancelTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *GameState) hasTimer() bool {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	return s.timer != nil
}

type idSet struct {
	mu sync.RWMutex
	m  map[domain.ParticipantID]struct{}
}

func newIDSet() *idSet {
	return &idSet{m: make(map[domain.ParticipantID]struct{})}
}

func (s *idSet) add(id domain.ParticipantID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[id]; ok {
		return false
	}
	s.m[id] = struct{}{}
	return true
}

// remove deletes id and returns the size left.
func (s *idSet) remove(id domain.ParticipantID) (removed bool, left int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, removed = s.m[id]
	delete(s.m, id)
	return removed, len(s.m)
}

func (s *idSet) has(id domain.ParticipantID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[id]
	return ok
}

func (s *idSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *idSet) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.m)
}

func (s *idSet) list() []domain.ParticipantID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ParticipantID, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	return out
}

type scoreboard struct {
	mu sync.RWMutex
	m  map[domain.ParticipantID]int
}

func newScoreboard() *scoreboard {
	return &scoreboard{m: make(map[domain.ParticipantID]int)}
}

// add sums points into id's score; negative deltas are ignored so scores never decrease.
func (b *scoreboard) add(id domain.ParticipantID, points int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if points > 0 {
		b.m[id] += points
	}
	return b.m[id]
}

func (b *scoreboard) ensure(id domain.ParticipantID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.m[id]; !ok {
		b.m[id] = 0
	}
}

func (b *scoreboard) get(id domain.ParticipantID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.m[id]
}

func (b *scoreboard) snapshot() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int, len(b.m))
	for id, v := range b.m {
		out[string(id)] = v
	}
	return out
}

// scoredGuard remembers which participants already had a submission accepted per question.
type scoredGuard struct {
	mu sync.Mutex
	m  map[string]map[domain.ParticipantID]struct{}
}

func newScoredGuard() *scoredGuard {
	return &scoredGuard{m: make(map[string]map[domain.ParticipantID]struct{})}
}

// claim reserves (question, participant); false means somebody got there first.
func (g *scoredGuard) claim(questionID string, id domain.ParticipantID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.m[questionID]
	if !ok {
		set = make(map[domain.ParticipantID]struct{})
		g.m[questionID] = set
	}
	if _, taken := set[id]; taken {
		return false
	}
	set[id] = struct{}{}
	return true
}

// release undoes a claim whose submission could not be recorded.
func (g *scoredGuard) release(questionID string, id domain.ParticipantID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.m[questionID], id)
}

func (g *scoredGuard) contains(questionID string, id domain.ParticipantID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[questionID][id]
	return ok
}
