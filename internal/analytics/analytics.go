// Package analytics builds the recruiter-facing view of a process.
package analytics

import (
	"context"
	stderrors "errors"
	"time"

	"skillpick/internal/errors"
	"skillpick/internal/store"
	"skillpick/internal/types"
)

// Aggregator reads candidates and scorecards of a process
type Aggregator struct {
	store  store.Store
	logger *errors.Logger
}

// NewAggregator creates an Aggregator over s
func NewAggregator(s store.Store, logger *errors.Logger) *Aggregator {
	return &Aggregator{store: s, logger: logger}
}

// Analytics returns the overview and leaderboard of a process. Averages
// cover evaluated candidates only and are zero when there are none.
func (a *Aggregator) Analytics(ctx context.Context, processID string) (*types.ProcessAnalytics, error) {
	process, err := a.store.GetProcess(ctx, processID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError(errors.ErrCodeProcessNotFound, "Process not found", nil)
		}
		return nil, storageError(err)
	}

	candidates, err := a.store.ListCandidates(ctx, processID)
	if err != nil {
		return nil, storageError(err)
	}
	scorecards, err := a.store.ListScorecards(ctx, processID)
	if err != nil {
		return nil, storageError(err)
	}

	result := &types.ProcessAnalytics{
		Overview: types.AnalyticsOverview{
			ProcessID:       process.ID,
			Title:           process.Title,
			CreatedAt:       process.CreatedAt.UTC().Format(time.RFC3339),
			TotalCandidates: len(candidates),
		},
		Candidates: make([]types.CandidateAnalytics, 0, len(candidates)),
	}

	var totalOverall, totalResume float64
	for _, c := range candidates {
		row := types.CandidateAnalytics{
			CandidateID:      c.ID,
			Name:             c.Name,
			Email:            c.Email,
			State:            c.State,
			ResumeMatchScore: c.ResumeMatchScore,
		}
		if card, ok := scorecards[c.ID]; ok && c.State == types.StateEvaluated {
			row.ResumeMatchScore = card.ResumeMatchScore
			row.MCQScore = card.MCQScore
			row.CodingScore = card.CodingScore
			row.TheoryScore = card.TheoryScore
			row.OverallScore = card.OverallScore
			row.FinalVerdict = card.FinalVerdict

			result.Overview.CompletedCandidates++
			totalOverall += card.OverallScore
			totalResume += card.ResumeMatchScore
		}
		result.Candidates = append(result.Candidates, row)
	}

	if n := result.Overview.CompletedCandidates; n > 0 {
		result.Overview.AverageOverallScore = totalOverall / float64(n)
		result.Overview.AverageResumeMatch = totalResume / float64(n)
	}

	a.logger.Debug("Analytics computed",
		"process_id", processID,
		"total_candidates", result.Overview.TotalCandidates,
		"completed_candidates", result.Overview.CompletedCandidates)
	return result, nil
}

func storageError(err error) error {
	return errors.NewIOError(errors.ErrCodeStorageFailed, "Failed to access storage", err)
}
