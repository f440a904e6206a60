// Package evaluation grades submitted tests and produces scorecards.
package evaluation

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"skillpick/internal/ai"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/events"
	"skillpick/internal/scoring"
	"skillpick/internal/store"
	"skillpick/internal/types"

	"golang.org/x/sync/errgroup"
)

// SubmissionInput is a candidate's answers keyed by question id
type SubmissionInput struct {
	MCQAnswers    map[string]int    `json:"mcq_answers"`
	CodingAnswers map[string]string `json:"coding_answers"`
	TheoryAnswers map[string]string `json:"theory_answers"`
}

// Evaluator grades submissions. At most one submission per candidate is
// ever accepted.
type Evaluator struct {
	store     store.Store
	client    *ai.Client
	engine    *scoring.Engine
	publisher events.Publisher
	vacuous   float64
	locks     *keyedMutex
	logger    *errors.Logger
}

// NewEvaluator wires an Evaluator. vacuousCredit is the score of a section
// without items.
func NewEvaluator(s store.Store, client *ai.Client, engine *scoring.Engine, publisher events.Publisher, vacuousCredit float64, logger *errors.Logger) *Evaluator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Evaluator{
		store:     s,
		client:    client,
		engine:    engine,
		publisher: publisher,
		vacuous:   vacuousCredit,
		locks:     newKeyedMutex(),
		logger:    logger,
	}
}

// Submit grades the answers of a candidate whose test was issued, stores the
// submission together with its scorecard and returns the scorecard. When
// grading fails the candidate stays test_issued and may submit again.
func (e *Evaluator) Submit(ctx context.Context, candidateID string, in SubmissionInput) (*types.Scorecard, error) {
	release, ok := e.locks.TryLock(candidateID)
	if !ok {
		return nil, errors.NewDuplicateSubmissionError(errors.ErrCodeSubmissionInProgress,
			"A submission for this test is already being graded", nil)
	}
	defer release()

	candidate, err := e.store.GetCandidate(ctx, candidateID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError(errors.ErrCodeCandidateNotFound, "Candidate not found", nil)
		}
		return nil, storageError(err)
	}
	if err := checkSubmittable(candidate.State); err != nil {
		return nil, err
	}

	qs, err := e.store.GetQuestionSet(ctx, candidateID)
	if err != nil {
		return nil, storageError(err)
	}
	process, err := e.store.GetProcess(ctx, candidate.ProcessID)
	if err != nil {
		return nil, storageError(err)
	}

	submission := &types.Submission{
		CandidateID:   candidateID,
		MCQAnswers:    nonNilInts(in.MCQAnswers),
		CodingAnswers: nonNilStrings(in.CodingAnswers),
		TheoryAnswers: nonNilStrings(in.TheoryAnswers),
		SubmittedAt:   time.Now().UTC(),
	}

	mcqScore := ScoreMCQ(qs.MCQ, submission.MCQAnswers, e.vacuous)

	var coding, theory sectionResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		coding, err = gradeSection(gctx, e.client, config.OperationCoding, types.SectionCoding,
			codingItems(qs.Coding), submission.CodingAnswers, e.vacuous)
		return err
	})
	g.Go(func() error {
		var err error
		theory, err = gradeSection(gctx, e.client, config.OperationTheory, types.SectionTheory,
			theoryItems(qs.Theory), submission.TheoryAnswers, e.vacuous)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		appErr := errors.NewEvaluationError(errors.ErrCodeGradingFailed,
			"Failed to grade the submission. Please try again.", err)
		e.logger.LogError(appErr, "Grading failed", "candidate_id", candidateID)
		return nil, appErr
	}

	agg := e.engine.Aggregate(scoring.Components{
		Resume:      candidate.ResumeMatchScore,
		MCQ:         mcqScore,
		Coding:      coding.Score,
		Theory:      theory.Score,
		EmptyMCQ:    len(qs.MCQ) == 0,
		EmptyCoding: coding.Empty,
		EmptyTheory: theory.Empty,
	})

	itemScores := append(coding.Items, theory.Items...)
	report := scoring.Report{
		ResumeMatchScore: candidate.ResumeMatchScore,
		ResumeSummary:    candidate.ResumeSummary,
		MCQScore:         mcqScore,
		CodingScore:      coding.Score,
		TheoryScore:      theory.Score,
		OverallScore:     agg.Overall,
		Verdict:          agg.Verdict,
		ItemScores:       itemScores,
	}
	narrative := e.engine.Summarize(ctx, process.JDAnalysis, report)

	scorecard := &types.Scorecard{
		CandidateID:      candidateID,
		ResumeMatchScore: candidate.ResumeMatchScore,
		MCQScore:         mcqScore,
		CodingScore:      coding.Score,
		TheoryScore:      theory.Score,
		OverallScore:     agg.Overall,
		Strengths:        narrative.Strengths,
		Weaknesses:       narrative.Weaknesses,
		Summary:          narrative.Summary,
		FinalVerdict:     agg.Verdict,
		ItemScores:       itemScores,
		EvaluatedAt:      time.Now().UTC(),
	}

	if err := e.store.CompleteEvaluation(ctx, candidateID, submission, scorecard); err != nil {
		var conflict *store.StateConflictError
		if stderrors.As(err, &conflict) {
			return nil, checkSubmittable(conflict.Actual)
		}
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError(errors.ErrCodeCandidateNotFound, "Candidate not found", nil)
		}
		return nil, storageError(err)
	}

	events.Emit(ctx, e.publisher, e.logger, events.New(events.CandidateEvaluated, candidate.ProcessID, map[string]any{
		"candidate_id":  candidateID,
		"overall_score": scorecard.OverallScore,
		"final_verdict": scorecard.FinalVerdict,
	}))
	e.logger.Info("Submission evaluated",
		"process_id", candidate.ProcessID,
		"candidate_id", candidateID,
		"overall_score", scorecard.OverallScore,
		"final_verdict", scorecard.FinalVerdict)

	return scorecard, nil
}

// Result returns the scorecard of an evaluated candidate
func (e *Evaluator) Result(ctx context.Context, candidateID string) (*types.Scorecard, error) {
	return LoadResult(ctx, e.store, candidateID)
}

// LoadResult reads the stored scorecard of a candidate
func LoadResult(ctx context.Context, s store.Store, candidateID string) (*types.Scorecard, error) {
	scorecard, err := s.GetScorecard(ctx, candidateID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError(errors.ErrCodeResultNotFound, "Result not found", nil)
		}
		return nil, storageError(err)
	}
	return scorecard, nil
}

// checkSubmittable maps a candidate state onto the error a submit in that
// state produces, or nil for test_issued.
func checkSubmittable(state types.CandidateState) error {
	switch state {
	case types.StateTestIssued:
		return nil
	case types.StateSubmitted, types.StateEvaluated:
		return errors.NewDuplicateSubmissionError(errors.ErrCodeAlreadySubmitted,
			"Test has already been submitted", nil)
	default:
		return errors.NewInvalidStateError(errors.ErrCodeTestNotIssued,
			"No test has been issued to this candidate", nil)
	}
}

func storageError(err error) error {
	return errors.NewIOError(errors.ErrCodeStorageFailed, "Failed to access storage", err)
}

func nonNilInts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func nonNilStrings(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// keyedMutex hands out at most one claim per key and forgets released keys
type keyedMutex struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{held: make(map[string]struct{})}
}

// TryLock claims key without waiting. It reports false while another caller
// holds the key.
func (k *keyedMutex) TryLock(key string) (func(), bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, busy := k.held[key]; busy {
		return nil, false
	}
	k.held[key] = struct{}{}
	return func() {
		k.mu.Lock()
		delete(k.held, key)
		k.mu.Unlock()
	}, true
}
