package evaluation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"skillpick/internal/ai"
	"skillpick/internal/ai/aitest"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/scoring"
	"skillpick/internal/store"
	"skillpick/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMCQ(t *testing.T) {
	items := []types.MCQItem{
		{ID: "m1", Options: []string{"a", "b"}, CorrectIndex: 0},
		{ID: "m2", Options: []string{"a", "b"}, CorrectIndex: 1},
		{ID: "m3", Options: []string{"a", "b", "c"}, CorrectIndex: 2},
		{ID: "m4", Options: []string{"a", "b"}, CorrectIndex: 1},
	}

	tests := []struct {
		name    string
		items   []types.MCQItem
		answers map[string]int
		want    float64
	}{
		{"all correct", items, map[string]int{"m1": 0, "m2": 1, "m3": 2, "m4": 1}, 100},
		{"half correct", items, map[string]int{"m1": 0, "m2": 1, "m3": 0, "m4": 0}, 50},
		{"unanswered and out of range", items, map[string]int{"m1": 0, "m2": 9, "m3": -1}, 25},
		{"unknown ids ignored", items, map[string]int{"zz": 0}, 0},
		{"nil answers", items, nil, 0},
		{"no items", nil, map[string]int{"m1": 0}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreMCQ(tt.items, tt.answers, 100))
		})
	}
}

func TestScoreMCQIsDeterministic(t *testing.T) {
	items := make([]types.MCQItem, 50)
	answers := make(map[string]int)
	for i := range items {
		items[i] = types.MCQItem{ID: fmt.Sprintf("m%d", i), Options: []string{"a", "b", "c"}, CorrectIndex: i % 3}
		answers[items[i].ID] = (i * 7) % 3
	}
	first := ScoreMCQ(items, answers, 100)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ScoreMCQ(items, answers, 100))
	}
}

// fixture is an evaluator over a memory store holding one issued test
type fixture struct {
	store     *store.MemoryStore
	oracle    *aitest.Oracle
	evaluator *Evaluator
}

func newFixture(t *testing.T, resumeScore float64, qs *types.QuestionSet) *fixture {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.CreateProcess(ctx, &types.Process{
		ID: "proc-1", Title: "Backend", Description: "Go", PublicToken: "tok", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.CreateCandidate(ctx, &types.Candidate{
		ID: "cand-1", ProcessID: "proc-1", Name: "Ada", Email: "ada@example.com",
		ResumeMatchScore: resumeScore, State: types.StateRegistered, CreatedAt: time.Now().UTC(),
	}))
	if qs != nil {
		qs.ID = "qs-1"
		qs.CandidateID = "cand-1"
		require.NoError(t, s.IssueTest(ctx, "cand-1", qs))
	}

	oracle := aitest.New().On(config.OperationSummary, aitest.JSON(map[string]any{
		"strengths":  []string{"fundamentals"},
		"weaknesses": []string{"testing"},
		"summary":    "Good candidate.",
	}))
	client := oracle.Client()
	engine := scoring.NewDefaultEngine(client, nil)
	return &fixture{
		store:     s,
		oracle:    oracle,
		evaluator: NewEvaluator(s, client, engine, nil, DefaultVacuousCredit, errors.NewNopLogger()),
	}
}

func TestSubmitWorkedExample(t *testing.T) {
	f := newFixture(t, 60, &types.QuestionSet{
		MCQ: []types.MCQItem{
			{ID: "m1", Question: "q1", Options: []string{"a", "b"}, CorrectIndex: 0},
			{ID: "m2", Question: "q2", Options: []string{"a", "b"}, CorrectIndex: 1},
		},
	})

	card, err := f.evaluator.Submit(context.Background(), "cand-1", SubmissionInput{
		MCQAnswers: map[string]int{"m1": 0, "m2": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, card.MCQScore)
	assert.Equal(t, 100.0, card.CodingScore)
	assert.Equal(t, 100.0, card.TheoryScore)
	assert.InDelta(t, 92.0, card.OverallScore, 1e-9)
	assert.Equal(t, types.VerdictStrongHire, card.FinalVerdict)
	assert.Equal(t, []string{"fundamentals"}, card.Strengths)
	assert.Equal(t, "Good candidate.", card.Summary)
	assert.Zero(t, f.oracle.CallCount(config.OperationCoding))
	assert.Zero(t, f.oracle.CallCount(config.OperationTheory))

	candidate, err := f.store.GetCandidate(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateEvaluated, candidate.State)

	stored, err := f.evaluator.Result(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, card.OverallScore, stored.OverallScore)
}

func TestSubmitGradesAnsweredItemsOnly(t *testing.T) {
	f := newFixture(t, 80, &types.QuestionSet{
		Coding: []types.CodingItem{
			{ID: "c1", Title: "Reverse", Description: "Reverse a string"},
			{ID: "c2", Title: "Sum", Description: "Sum a slice"},
		},
		Theory: []types.TheoryItem{{ID: "t1", Question: "Explain channels"}},
	})
	f.oracle.
		On(config.OperationCoding, aitest.JSON(map[string]any{
			"per_question": []map[string]any{{"question_id": "c1", "score": 80, "feedback": "works"}},
		})).
		On(config.OperationTheory, aitest.JSON(map[string]any{
			"per_question": []map[string]any{{"question_id": "t1", "score": 50, "feedback": "shallow"}},
		}))

	card, err := f.evaluator.Submit(context.Background(), "cand-1", SubmissionInput{
		CodingAnswers: map[string]string{"c1": "func reverse() {}", "c2": "   "},
		TheoryAnswers: map[string]string{"t1": "they pass values"},
	})
	require.NoError(t, err)

	assert.Equal(t, 40.0, card.CodingScore, "blank answer counts as 0 in the mean")
	assert.Equal(t, 50.0, card.TheoryScore)
	assert.Equal(t, 100.0, card.MCQScore)
	require.Len(t, card.ItemScores, 3)
	assert.Equal(t, types.ItemScore{QuestionID: "c2", Section: types.SectionCoding, Score: 0, Feedback: noAnswerFeedback}, card.ItemScores[1])

	calls := f.oracle.Calls(config.OperationCoding)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].UserPrompt, "Reverse a string")
	assert.NotContains(t, calls[0].UserPrompt, "Sum a slice")
}

func TestSubmitRetriesOnIncompleteCoverage(t *testing.T) {
	f := newFixture(t, 80, &types.QuestionSet{
		Theory: []types.TheoryItem{{ID: "t1", Question: "A"}, {ID: "t2", Question: "B"}},
	})
	f.oracle.On(config.OperationTheory,
		aitest.JSON(map[string]any{"per_question": []map[string]any{{"question_id": "t1", "score": 90}}}),
		aitest.JSON(map[string]any{"per_question": []map[string]any{
			{"question_id": "t1", "score": 90},
			{"question_id": "t2", "score": 70},
		}}),
	)

	card, err := f.evaluator.Submit(context.Background(), "cand-1", SubmissionInput{
		TheoryAnswers: map[string]string{"t1": "a", "t2": "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, card.TheoryScore)

	calls := f.oracle.Calls(config.OperationTheory)
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].UserPrompt, `"t2" was not graded`)
}

func TestSubmitOracleFailureKeepsTestIssued(t *testing.T) {
	f := newFixture(t, 80, &types.QuestionSet{
		Coding: []types.CodingItem{{ID: "c1", Description: "Reverse"}},
	})
	f.oracle.On(config.OperationCoding, aitest.JSON(map[string]any{
		"per_question": []map[string]any{{"question_id": "c1", "score": 140}},
	}))

	_, err := f.evaluator.Submit(context.Background(), "cand-1", SubmissionInput{
		CodingAnswers: map[string]string{"c1": "code"},
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeEvaluation, errors.TypeOf(err))
	assert.Equal(t, 3, f.oracle.CallCount(config.OperationCoding))

	candidate, err := f.store.GetCandidate(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateTestIssued, candidate.State)

	_, err = f.evaluator.Result(context.Background(), "cand-1")
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(err))
}

func TestSubmitStateErrors(t *testing.T) {
	t.Run("unknown candidate", func(t *testing.T) {
		f := newFixture(t, 80, &types.QuestionSet{})
		_, err := f.evaluator.Submit(context.Background(), "nope", SubmissionInput{})
		assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(err))
	})

	t.Run("test not issued", func(t *testing.T) {
		f := newFixture(t, 80, nil)
		_, err := f.evaluator.Submit(context.Background(), "cand-1", SubmissionInput{})
		assert.Equal(t, errors.ErrorTypeInvalidState, errors.TypeOf(err))
	})

	t.Run("second submission", func(t *testing.T) {
		f := newFixture(t, 80, &types.QuestionSet{})
		_, err := f.evaluator.Submit(context.Background(), "cand-1", SubmissionInput{})
		require.NoError(t, err)
		_, err = f.evaluator.Submit(context.Background(), "cand-1", SubmissionInput{})
		assert.Equal(t, errors.ErrorTypeDuplicateSubmission, errors.TypeOf(err))
	})
}

func TestSubmitConcurrentSingleScorecard(t *testing.T) {
	f := newFixture(t, 70, &types.QuestionSet{
		Theory: []types.TheoryItem{{ID: "t1", Question: "A"}},
	})
	f.oracle.Handle(config.OperationTheory, func(ai.PromptSpec) aitest.Response {
		return aitest.JSON(map[string]any{"per_question": []map[string]any{{"question_id": "t1", "score": 60}}})
	})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.evaluator.Submit(context.Background(), "cand-1", SubmissionInput{
				TheoryAnswers: map[string]string{"t1": "answer"},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, errors.ErrorTypeDuplicateSubmission, errors.TypeOf(err))
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.oracle.CallCount(config.OperationTheory), "the keyed lock prevents duplicate grading")
}

func TestSubmitSummaryDegrades(t *testing.T) {
	f := newFixture(t, 60, &types.QuestionSet{})
	f.oracle.Handle(config.OperationSummary, func(ai.PromptSpec) aitest.Response {
		return aitest.Text("not json")
	})

	card, err := f.evaluator.Submit(context.Background(), "cand-1", SubmissionInput{})
	require.NoError(t, err)
	assert.Empty(t, card.Strengths)
	assert.Empty(t, card.Weaknesses)
	assert.Contains(t, card.Summary, "Overall score")
}

func TestSubmitWhileGradingFailsFast(t *testing.T) {
	f := newFixture(t, 70, &types.QuestionSet{
		Theory: []types.TheoryItem{{ID: "t1", Question: "A"}},
	})
	f.oracle.Handle(config.OperationTheory, func(ai.PromptSpec) aitest.Response {
		resp := aitest.JSON(map[string]any{"per_question": []map[string]any{{"question_id": "t1", "score": 60}}})
		resp.Delay = time.Second
		return resp
	})
	answers := SubmissionInput{TheoryAnswers: map[string]string{"t1": "answer"}}

	first := make(chan error, 1)
	go func() {
		_, err := f.evaluator.Submit(context.Background(), "cand-1", answers)
		first <- err
	}()
	require.Eventually(t, func() bool { return f.oracle.CallCount(config.OperationTheory) == 1 },
		time.Second, 5*time.Millisecond)

	start := time.Now()
	_, err := f.evaluator.Submit(context.Background(), "cand-1", answers)
	elapsed := time.Since(start)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeDuplicateSubmission, appErr.Type)
	assert.Equal(t, errors.ErrCodeSubmissionInProgress, appErr.Code)
	assert.Less(t, elapsed, 500*time.Millisecond, "the second submit must not wait for grading")
	select {
	case <-first:
		t.Fatal("the first submit finished before the second was rejected")
	default:
	}

	require.NoError(t, <-first)
	assert.Equal(t, 1, f.oracle.CallCount(config.OperationTheory))
}

func TestKeyedMutexForgetsIdleKeys(t *testing.T) {
	k := newKeyedMutex()
	release, ok := k.TryLock("a")
	require.True(t, ok)
	assert.Len(t, k.held, 1)

	_, ok = k.TryLock("a")
	assert.False(t, ok, "a held key cannot be claimed twice")
	_, ok = k.TryLock("b")
	assert.True(t, ok)

	release()
	assert.Len(t, k.held, 1)
	_, ok = k.TryLock("a")
	assert.True(t, ok, "a released key can be claimed again")
}
