// Package store persists processes, candidates and their assessment artifacts.
package store

import (
	"context"
	"errors"
	"fmt"

	"skillpick/internal/types"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint would be violated
	ErrDuplicate = errors.New("record already exists")
)

// StateConflictError is returned when a compare-and-swap on the candidate
// state finds a different state than expected.
type StateConflictError struct {
	CandidateID string
	Expected    types.CandidateState
	Actual      types.CandidateState
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("candidate %s is %s, expected %s", e.CandidateID, e.Actual, e.Expected)
}

// Store is the persistence contract. Implementations must make IssueTest and
// CompleteEvaluation atomic with respect to the candidate state.
type Store interface {
	CreateProcess(ctx context.Context, process *types.Process) error
	GetProcess(ctx context.Context, id string) (*types.Process, error)
	GetProcessByToken(ctx context.Context, token string) (*types.Process, error)

	// CreateCandidate inserts a candidate. It returns ErrDuplicate when the
	// normalized email is already registered for the process.
	CreateCandidate(ctx context.Context, candidate *types.Candidate) error
	GetCandidate(ctx context.Context, id string) (*types.Candidate, error)
	// FindCandidateByEmail looks a candidate up by normalized email within a process
	FindCandidateByEmail(ctx context.Context, processID, email string) (*types.Candidate, error)
	// DeleteCandidate removes a candidate that is still registered, freeing
	// its (process, email) claim. Any other state is a StateConflictError.
	DeleteCandidate(ctx context.Context, id string) error
	// ListCandidates returns a process's candidates in registration order
	ListCandidates(ctx context.Context, processID string) ([]types.Candidate, error)

	// IssueTest stores the question set and moves the candidate from
	// registered to test_issued.
	IssueTest(ctx context.Context, candidateID string, questions *types.QuestionSet) error
	GetQuestionSet(ctx context.Context, candidateID string) (*types.QuestionSet, error)

	// CompleteEvaluation moves the candidate from test_issued to evaluated and
	// stores the submission and scorecard, all or nothing.
	CompleteEvaluation(ctx context.Context, candidateID string, submission *types.Submission, scorecard *types.Scorecard) error
	GetSubmission(ctx context.Context, candidateID string) (*types.Submission, error)
	GetScorecard(ctx context.Context, candidateID string) (*types.Scorecard, error)
	// ListScorecards returns the scorecards of a process keyed by candidate id
	ListScorecards(ctx context.Context, processID string) (map[string]*types.Scorecard, error)

	Close() error
}
