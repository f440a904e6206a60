package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"skillpick/internal/config"
	skillpickErrors "skillpick/internal/errors"
	"skillpick/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := OpenGorm(config.DatabaseConfig{
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "skillpick.db"),
		AutoMigrate: true,
	}, skillpickErrors.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// forEachStore runs fn against every Store implementation
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func seedProcess(t *testing.T, s Store) *types.Process {
	t.Helper()
	p := &types.Process{
		ID:          "proc-1",
		Title:       "Backend Engineer",
		Description: "Go services",
		NumMCQ:      2,
		NumCoding:   1,
		NumTheory:   1,
		PublicToken: "tok-abc",
		JDAnalysis: types.JDAnalysis{
			Skills:    []string{"go", "sql"},
			TechStack: []string{"postgres"},
			RoleLevel: types.RoleLevelSenior,
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.CreateProcess(context.Background(), p))
	return p
}

func seedCandidate(t *testing.T, s Store, id, email string) *types.Candidate {
	t.Helper()
	c := &types.Candidate{
		ID:               id,
		ProcessID:        "proc-1",
		Name:             "Ada",
		Email:            email,
		ResumeMatchScore: 72,
		SkillOverlap:     []string{"go"},
		State:            types.StateRegistered,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, s.CreateCandidate(context.Background(), c))
	return c
}

func sampleQuestions() *types.QuestionSet {
	return &types.QuestionSet{
		ID:     "qs-1",
		MCQ:    []types.MCQItem{{ID: "mcq-1", Question: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1}},
		Coding: []types.CodingItem{{ID: "code-1", Title: "Reverse", Description: "Reverse a string"}},
		Theory: []types.TheoryItem{{ID: "theory-1", Question: "What is a goroutine?"}},
	}
}

func TestProcessRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := seedProcess(t, s)

		got, err := s.GetProcess(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Title, got.Title)
		assert.Equal(t, p.JDAnalysis, got.JDAnalysis)

		byToken, err := s.GetProcessByToken(ctx, "tok-abc")
		require.NoError(t, err)
		assert.Equal(t, p.ID, byToken.ID)

		_, err = s.GetProcess(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetProcessByToken(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateCandidateRejectsDuplicateEmail(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedProcess(t, s)
		seedCandidate(t, s, "cand-1", "ada@example.com")

		err := s.CreateCandidate(ctx, &types.Candidate{
			ID: "cand-2", ProcessID: "proc-1", Email: "  ADA@Example.com ", State: types.StateRegistered,
		})
		assert.ErrorIs(t, err, ErrDuplicate)

		err = s.CreateCandidate(ctx, &types.Candidate{ID: "cand-3", ProcessID: "nope", Email: "x@example.com"})
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := s.GetCandidate(ctx, "cand-1")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", got.Email)

		found, err := s.FindCandidateByEmail(ctx, "proc-1", " Ada@EXAMPLE.com")
		require.NoError(t, err)
		assert.Equal(t, "cand-1", found.ID)
		_, err = s.FindCandidateByEmail(ctx, "proc-1", "bob@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, []string{"go"}, got.SkillOverlap)
	})
}

func TestListCandidatesKeepsRegistrationOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		seedProcess(t, s)
		for i := 1; i <= 3; i++ {
			seedCandidate(t, s, fmt.Sprintf("cand-%d", i), fmt.Sprintf("c%d@example.com", i))
			time.Sleep(2 * time.Millisecond)
		}

		list, err := s.ListCandidates(context.Background(), "proc-1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "cand-1", list[0].ID)
		assert.Equal(t, "cand-3", list[2].ID)
	})
}

func TestIssueTestTransitionsOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedProcess(t, s)
		seedCandidate(t, s, "cand-1", "ada@example.com")

		require.NoError(t, s.IssueTest(ctx, "cand-1", sampleQuestions()))

		got, err := s.GetCandidate(ctx, "cand-1")
		require.NoError(t, err)
		assert.Equal(t, types.StateTestIssued, got.State)
		assert.Equal(t, "qs-1", got.QuestionSetID)

		qs, err := s.GetQuestionSet(ctx, "cand-1")
		require.NoError(t, err)
		assert.Equal(t, 1, qs.MCQ[0].CorrectIndex)
		assert.Equal(t, "code-1", qs.Coding[0].ID)

		err = s.IssueTest(ctx, "cand-1", sampleQuestions())
		var conflict *StateConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, types.StateTestIssued, conflict.Actual)

		assert.ErrorIs(t, s.IssueTest(ctx, "missing", sampleQuestions()), ErrNotFound)
	})
}

func TestDeleteCandidateFreesEmail(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedProcess(t, s)
		seedCandidate(t, s, "cand-1", "ada@example.com")
		seedCandidate(t, s, "cand-2", "bob@example.com")

		require.NoError(t, s.DeleteCandidate(ctx, "cand-1"))

		_, err := s.GetCandidate(ctx, "cand-1")
		assert.ErrorIs(t, err, ErrNotFound)
		list, err := s.ListCandidates(ctx, "proc-1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "cand-2", list[0].ID)

		seedCandidate(t, s, "cand-3", "ada@example.com")

		require.NoError(t, s.IssueTest(ctx, "cand-2", sampleQuestions()))
		var conflict *StateConflictError
		require.ErrorAs(t, s.DeleteCandidate(ctx, "cand-2"), &conflict)
		assert.Equal(t, types.StateTestIssued, conflict.Actual)

		assert.ErrorIs(t, s.DeleteCandidate(ctx, "missing"), ErrNotFound)
	})
}

func TestCompleteEvaluationStoresArtifacts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedProcess(t, s)
		seedCandidate(t, s, "cand-1", "ada@example.com")

		err := s.CompleteEvaluation(ctx, "cand-1", &types.Submission{}, &types.Scorecard{})
		var conflict *StateConflictError
		require.ErrorAs(t, err, &conflict, "registered candidates cannot be evaluated")

		require.NoError(t, s.IssueTest(ctx, "cand-1", sampleQuestions()))
		submission := &types.Submission{
			CandidateID:   "cand-1",
			MCQAnswers:    map[string]int{"mcq-1": 1},
			CodingAnswers: map[string]string{"code-1": "func r() {}"},
			TheoryAnswers: map[string]string{"theory-1": "a lightweight thread"},
			SubmittedAt:   time.Now().UTC(),
		}
		scorecard := &types.Scorecard{
			CandidateID:  "cand-1",
			MCQScore:     100,
			OverallScore: 81.5,
			Strengths:    []string{"fundamentals"},
			FinalVerdict: types.VerdictHire,
			ItemScores:   []types.ItemScore{{QuestionID: "code-1", Section: types.SectionCoding, Score: 70}},
		}
		require.NoError(t, s.CompleteEvaluation(ctx, "cand-1", submission, scorecard))

		got, err := s.GetCandidate(ctx, "cand-1")
		require.NoError(t, err)
		assert.Equal(t, types.StateEvaluated, got.State)

		storedSub, err := s.GetSubmission(ctx, "cand-1")
		require.NoError(t, err)
		assert.Equal(t, 1, storedSub.MCQAnswers["mcq-1"])

		storedCard, err := s.GetScorecard(ctx, "cand-1")
		require.NoError(t, err)
		assert.Equal(t, types.VerdictHire, storedCard.FinalVerdict)
		assert.Equal(t, []string{"fundamentals"}, storedCard.Strengths)
		require.Len(t, storedCard.ItemScores, 1)

		cards, err := s.ListScorecards(ctx, "proc-1")
		require.NoError(t, err)
		assert.Contains(t, cards, "cand-1")

		err = s.CompleteEvaluation(ctx, "cand-1", submission, scorecard)
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, types.StateEvaluated, conflict.Actual)
	})
}

func TestCompleteEvaluationConcurrentSingleWinner(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedProcess(t, s)
		seedCandidate(t, s, "cand-1", "ada@example.com")
		require.NoError(t, s.IssueTest(ctx, "cand-1", sampleQuestions()))

		const workers = 8
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results <- s.CompleteEvaluation(ctx, "cand-1",
					&types.Submission{CandidateID: "cand-1", SubmittedAt: time.Now().UTC()},
					&types.Scorecard{CandidateID: "cand-1", OverallScore: float64(i)})
			}(i)
		}
		wg.Wait()
		close(results)

		wins, conflicts := 0, 0
		for err := range results {
			var conflict *StateConflictError
			switch {
			case err == nil:
				wins++
			case errors.As(err, &conflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, workers-1, conflicts)
	})
}

func TestOpenSelectsDriver(t *testing.T) {
	s, err := Open(config.DatabaseConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(config.DatabaseConfig{Driver: "oracle"}, nil)
	assert.True(t, skillpickErrors.Is(err, skillpickErrors.ErrorTypeConfig))
}
