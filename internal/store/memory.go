package store

import (
	"context"
	"slices"
	"sync"

	"skillpick/internal/types"
)

// MemoryStore keeps everything in process memory. All mutations happen under
// one lock, which makes the multi-record updates atomic.
type MemoryStore struct {
	mu          sync.RWMutex
	processes   map[string]types.Process
	tokens      map[string]string // token -> process id
	candidates  map[string]types.Candidate
	order       map[string][]string // process id -> candidate ids
	emails      map[string]string   // process id + email -> candidate id
	questions   map[string]types.QuestionSet
	submissions map[string]types.Submission
	scorecards  map[string]types.Scorecard
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		processes:   make(map[string]types.Process),
		tokens:      make(map[string]string),
		candidates:  make(map[string]types.Candidate),
		order:       make(map[string][]string),
		emails:      make(map[string]string),
		questions:   make(map[string]types.QuestionSet),
		submissions: make(map[string]types.Submission),
		scorecards:  make(map[string]types.Scorecard),
	}
}

func emailKey(processID, email string) string {
	return processID + "\x00" + types.NormalizeEmail(email)
}

func (m *MemoryStore) CreateProcess(_ context.Context, process *types.Process) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.processes[process.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := m.tokens[process.PublicToken]; ok {
		return ErrDuplicate
	}
	m.processes[process.ID] = cloneProcess(*process)
	m.tokens[process.PublicToken] = process.ID
	return nil
}

func (m *MemoryStore) GetProcess(_ context.Context, id string) (*types.Process, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	process, ok := m.processes[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneProcess(process)
	return &out, nil
}

func (m *MemoryStore) GetProcessByToken(ctx context.Context, token string) (*types.Process, error) {
	m.mu.RLock()
	id, ok := m.tokens[token]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetProcess(ctx, id)
}

func (m *MemoryStore) CreateCandidate(_ context.Context, candidate *types.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.processes[candidate.ProcessID]; !ok {
		return ErrNotFound
	}
	key := emailKey(candidate.ProcessID, candidate.Email)
	if _, ok := m.emails[key]; ok {
		return ErrDuplicate
	}
	if _, ok := m.candidates[candidate.ID]; ok {
		return ErrDuplicate
	}

	stored := *candidate
	stored.Email = types.NormalizeEmail(candidate.Email)
	stored.SkillOverlap = append([]string(nil), candidate.SkillOverlap...)
	m.candidates[stored.ID] = stored
	m.emails[key] = stored.ID
	m.order[stored.ProcessID] = append(m.order[stored.ProcessID], stored.ID)
	return nil
}

func (m *MemoryStore) GetCandidate(_ context.Context, id string) (*types.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidate, ok := m.candidates[id]
	if !ok {
		return nil, ErrNotFound
	}
	candidate.SkillOverlap = append([]string(nil), candidate.SkillOverlap...)
	return &candidate, nil
}

func (m *MemoryStore) FindCandidateByEmail(ctx context.Context, processID, email string) (*types.Candidate, error) {
	m.mu.RLock()
	id, ok := m.emails[emailKey(processID, email)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetCandidate(ctx, id)
}

func (m *MemoryStore) DeleteCandidate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate, ok := m.candidates[id]
	if !ok {
		return ErrNotFound
	}
	if candidate.State != types.StateRegistered {
		return &StateConflictError{CandidateID: id, Expected: types.StateRegistered, Actual: candidate.State}
	}

	delete(m.candidates, id)
	delete(m.emails, emailKey(candidate.ProcessID, candidate.Email))
	m.order[candidate.ProcessID] = slices.DeleteFunc(m.order[candidate.ProcessID], func(other string) bool { return other == id })
	return nil
}

func (m *MemoryStore) ListCandidates(_ context.Context, processID string) ([]types.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.order[processID]
	out := make([]types.Candidate, 0, len(ids))
	for _, id := range ids {
		candidate := m.candidates[id]
		candidate.SkillOverlap = append([]string(nil), candidate.SkillOverlap...)
		out = append(out, candidate)
	}
	return out, nil
}

func (m *MemoryStore) IssueTest(_ context.Context, candidateID string, questions *types.QuestionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate, ok := m.candidates[candidateID]
	if !ok {
		return ErrNotFound
	}
	if candidate.State != types.StateRegistered {
		return &StateConflictError{CandidateID: candidateID, Expected: types.StateRegistered, Actual: candidate.State}
	}

	qs := cloneQuestionSet(*questions)
	qs.CandidateID = candidateID
	m.questions[candidateID] = qs

	candidate.State = types.StateTestIssued
	candidate.QuestionSetID = qs.ID
	m.candidates[candidateID] = candidate
	return nil
}

func (m *MemoryStore) GetQuestionSet(_ context.Context, candidateID string) (*types.QuestionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	qs, ok := m.questions[candidateID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneQuestionSet(qs)
	return &out, nil
}

func (m *MemoryStore) CompleteEvaluation(_ context.Context, candidateID string, submission *types.Submission, scorecard *types.Scorecard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate, ok := m.candidates[candidateID]
	if !ok {
		return ErrNotFound
	}
	if candidate.State != types.StateTestIssued {
		return &StateConflictError{CandidateID: candidateID, Expected: types.StateTestIssued, Actual: candidate.State}
	}

	m.submissions[candidateID] = cloneSubmission(*submission)
	m.scorecards[candidateID] = cloneScorecard(*scorecard)
	candidate.State = types.StateEvaluated
	m.candidates[candidateID] = candidate
	return nil
}

func (m *MemoryStore) GetSubmission(_ context.Context, candidateID string) (*types.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	submission, ok := m.submissions[candidateID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneSubmission(submission)
	return &out, nil
}

func (m *MemoryStore) GetScorecard(_ context.Context, candidateID string) (*types.Scorecard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scorecard, ok := m.scorecards[candidateID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneScorecard(scorecard)
	return &out, nil
}

func (m *MemoryStore) ListScorecards(_ context.Context, processID string) (map[string]*types.Scorecard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*types.Scorecard)
	for _, id := range m.order[processID] {
		if scorecard, ok := m.scorecards[id]; ok {
			sc := cloneScorecard(scorecard)
			out[id] = &sc
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func cloneProcess(p types.Process) types.Process {
	p.JDAnalysis.Skills = append([]string(nil), p.JDAnalysis.Skills...)
	p.JDAnalysis.TechStack = append([]string(nil), p.JDAnalysis.TechStack...)
	return p
}

func cloneQuestionSet(qs types.QuestionSet) types.QuestionSet {
	mcq := make([]types.MCQItem, len(qs.MCQ))
	for i, item := range qs.MCQ {
		item.Options = append([]string(nil), item.Options...)
		mcq[i] = item
	}
	qs.MCQ = mcq
	qs.Coding = append([]types.CodingItem(nil), qs.Coding...)
	qs.Theory = append([]types.TheoryItem(nil), qs.Theory...)
	return qs
}

func cloneSubmission(s types.Submission) types.Submission {
	mcq := make(map[string]int, len(s.MCQAnswers))
	for k, v := range s.MCQAnswers {
		mcq[k] = v
	}
	coding := make(map[string]string, len(s.CodingAnswers))
	for k, v := range s.CodingAnswers {
		coding[k] = v
	}
	theory := make(map[string]string, len(s.TheoryAnswers))
	for k, v := range s.TheoryAnswers {
		theory[k] = v
	}
	s.MCQAnswers, s.CodingAnswers, s.TheoryAnswers = mcq, coding, theory
	return s
}

func cloneScorecard(sc types.Scorecard) types.Scorecard {
	sc.Strengths = append([]string(nil), sc.Strengths...)
	sc.Weaknesses = append([]string(nil), sc.Weaknesses...)
	sc.ItemScores = append([]types.ItemScore(nil), sc.ItemScores...)
	return sc
}
