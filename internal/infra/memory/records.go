package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
)

// Participants keeps participant records in memory.
type Participants struct {
	clock func() time.Time

	mu   sync.RWMutex
	byID map[domain.ParticipantID]*domain.Participant
}

func NewParticipants() *Participants {
	return &Participants{
		clock: time.Now,
		byID:  make(map[domain.ParticipantID]*domain.Participant),
	}
}

// Create registers name in the session. Names are unique per session, ignoring case.
func (p *Participants) Create(_ context.Context, code domain.SessionCode, name string) (domain.Participant, error) {
	name = strings.TrimSpace(name)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range p.byID {
		if rec.SessionCode == code && strings.EqualFold(rec.Name, name) {
			return domain.Participant{}, domain.ErrNameTaken
		}
	}
	rec := &domain.Participant{
		ID:          domain.ParticipantID(uuid.NewString()),
		SessionCode: code,
		Name:        name,
		Status:      domain.ParticipantWaiting,
		JoinedAt:    p.clock(),
	}
	p.byID[rec.ID] = rec
	return *rec, nil
}

func (p *Participants) FindByIdentity(_ context.Context, id domain.ParticipantID) (domain.Participant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.byID[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return *rec, nil
}

func (p *Participants) UpdateScore(_ context.Context, id domain.ParticipantID, totalScore, correct, total int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.byID[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	rec.TotalScore = totalScore
	rec.CorrectAnswers = correct
	rec.TotalAnswers = total
	return nil
}

func (p *Participants) MarkStatus(_ context.Context, id domain.ParticipantID, status domain.ParticipantStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.byID[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.setStatus(rec, status)
	return nil
}

func (p *Participants) MarkSessionStatus(_ context.Context, code domain.SessionCode, status, skip domain.ParticipantStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range p.byID {
		if rec.SessionCode == code && rec.Status != skip {
			p.setStatus(rec, status)
		}
	}
	return nil
}

func (p *Participants) setStatus(rec *domain.Participant, status domain.ParticipantStatus) {
	rec.Status = status
	if status == domain.ParticipantFinished {
		now := p.clock()
		rec.FinishedAt = &now
	}
}

func (p *Participants) DeleteBySession(_ context.Context, code domain.SessionCode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, rec := range p.byID {
		if rec.SessionCode == code {
			delete(p.byID, id)
		}
	}
	return nil
}

// ListBySession lists the participants of code ordered by join time.
func (p *Participants) ListBySession(_ context.Context, code domain.SessionCode) ([]domain.Participant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []domain.Participant
	for _, rec := range p.byID {
		if rec.SessionCode == code {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// Sessions keeps session records in memory.
type Sessions struct {
	clock func() time.Time

	mu     sync.RWMutex
	byCode map[domain.SessionCode]*domain.SessionRecord
}

func NewSessions() *Sessions {
	return &Sessions{
		clock:  time.Now,
		byCode: make(map[domain.SessionCode]*domain.SessionRecord),
	}
}

// Create opens a WAITING session for quizID.
func (s *Sessions) Create(code domain.SessionCode, quizID string) domain.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &domain.SessionRecord{Code: code, QuizID: quizID, Status: domain.SessionWaiting}
	s.byCode[code] = rec
	return *rec
}

func (s *Sessions) FindByCode(_ context.Context, code domain.SessionCode) (domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byCode[code]
	if !ok {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	return *rec, nil
}

func (s *Sessions) MarkStarted(_ context.Context, code domain.SessionCode) error {
	return s.update(code, func(rec *domain.SessionRecord, now time.Time) {
		rec.Status = domain.SessionActive
		rec.StartedAt = &now
	})
}

func (s *Sessions) MarkFinished(_ context.Context, code domain.SessionCode) error {
	return s.update(code, func(rec *domain.SessionRecord, now time.Time) {
		rec.Status = domain.SessionFinished
		rec.FinishedAt = &now
	})
}

func (s *Sessions) update(code domain.SessionCode, fn func(*domain.SessionRecord, time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byCode[code]
	if !ok {
		return domain.ErrSessionNotFound
	}
	fn(rec, s.clock())
	return nil
}

func (s *Sessions) Delete(_ context.Context, code domain.SessionCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byCode, code)
	return nil
}

type answerKey struct {
	participant domain.ParticipantID
	question    string
}

// Answers checks submissions against a Catalog and keeps the accepted ones.
type Answers struct {
	catalog *Catalog

	mu        sync.RWMutex
	bySession map[domain.SessionCode]map[answerKey]domain.ParticipantAnswer
}

func NewAnswers(catalog *Catalog) *Answers {
	return &Answers{
		catalog:   catalog,
		bySession: make(map[domain.SessionCode]map[answerKey]domain.ParticipantAnswer),
	}
}

func (a *Answers) IsCorrect(_ context.Context, questionID, answerID string) (bool, error) {
	q, ok := a.catalog.Question(questionID)
	if !ok {
		return false, domain.ErrQuestionNotFound
	}
	for _, opt := range q.Answers {
		if opt.ID == answerID {
			return opt.Correct, nil
		}
	}
	return false, domain.ErrAnswerNotFound
}

// IsTextCorrect matches text against the correct answers of the question, ignoring case and surrounding space.
func (a *Answers) IsTextCorrect(_ context.Context, questionID, text string) (bool, error) {
	q, ok := a.catalog.Question(questionID)
	if !ok {
		return false, domain.ErrQuestionNotFound
	}
	text = strings.TrimSpace(text)
	for _, opt := range q.Answers {
		if opt.Correct && strings.EqualFold(strings.TrimSpace(opt.Text), text) {
			return true, nil
		}
	}
	return false, nil
}

func (a *Answers) RecordAnswer(_ context.Context, answer domain.ParticipantAnswer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.bySession[answer.SessionCode]
	if !ok {
		set = make(map[answerKey]domain.ParticipantAnswer)
		a.bySession[answer.SessionCode] = set
	}
	key := answerKey{participant: answer.ParticipantID, question: answer.QuestionID}
	if _, dup := set[key]; dup {
		return domain.ErrDuplicateSubmission
	}
	set[key] = answer
	return nil
}

func (a *Answers) DeleteBySession(_ context.Context, code domain.SessionCode) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bySession, code)
	return nil
}

// ForSession lists the recorded answers of code in answer order.
func (a *Answers) ForSession(code domain.SessionCode) []domain.ParticipantAnswer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.ParticipantAnswer, 0, len(a.bySession[code]))
	for _, ans := range a.bySession[code] {
		out = append(out, ans)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnsweredAt.Before(out[j].AnsweredAt) })
	return out
}
