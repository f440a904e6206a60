package formatters

import (
	"testing"

	"skillpick/internal/screening"
	"skillpick/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalytics() *types.ProcessAnalytics {
	return &types.ProcessAnalytics{
		Overview: types.AnalyticsOverview{
			ProcessID:           "p1",
			Title:               "Go Engineer",
			CreatedAt:           "2026-01-02T03:04:05Z",
			AverageOverallScore: 72.5,
			AverageResumeMatch:  61,
			TotalCandidates:     2,
			CompletedCandidates: 1,
		},
		Candidates: []types.CandidateAnalytics{
			{Name: "Ada | L", Email: "ada@example.com", State: types.StateEvaluated, OverallScore: 72.5, FinalVerdict: types.VerdictHire},
			{Name: "Bob", Email: "bob@example.com", State: types.StateTestIssued},
		},
	}
}

func TestFormatAnalytics(t *testing.T) {
	registry := NewFormatterRegistry()

	text, err := registry.Format(sampleAnalytics(), "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Candidates: 2 (1 completed)")
	assert.Contains(t, text, "Overall 72.5 | hire")
	assert.NotContains(t, text, "Overall 0.0 |", "pending candidates have no verdict column")

	md, err := registry.Format(sampleAnalytics(), "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Go Engineer")
	assert.Contains(t, md, `Ada \| L`)

	js, err := registry.Format(sampleAnalytics(), "json")
	require.NoError(t, err)
	assert.Contains(t, js, `"average_overall_score": 72.5`)
}

func TestFormatScorecard(t *testing.T) {
	card := &types.Scorecard{
		CandidateID:  "c1",
		OverallScore: 92,
		FinalVerdict: types.VerdictStrongHire,
		Summary:      "Excellent.",
		Strengths:    []string{"concurrency"},
		ItemScores:   []types.ItemScore{{QuestionID: "t1", Section: types.SectionTheory, Score: 90, Feedback: "clear"}},
	}

	text, err := NewFormatterRegistry().Format(card, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Verdict: strong_hire")
	assert.Contains(t, text, "- concurrency")
	assert.NotContains(t, text, "Weaknesses:")
	assert.Contains(t, text, "[theory] t1: 90.0 - clear")

	md, err := NewFormatterRegistry().Format(card, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "**Overall:** 92.00/100")
}

func TestFormatScreeningResult(t *testing.T) {
	text, err := NewFormatterRegistry().Format(&screening.Result{
		MatchScore:   42,
		Summary:      "Some overlap.",
		SkillOverlap: []string{"Go", "SQL"},
		Accepted:     false,
	}, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Decision: REJECTED")
	assert.Contains(t, text, "Match score: 42.0/100")
	assert.Contains(t, text, "- SQL")
	assert.NotContains(t, text, "Experience relevance")
}

func TestFormatUnknown(t *testing.T) {
	registry := NewFormatterRegistry()

	_, err := registry.Format(struct{}{}, "text")
	assert.EqualError(t, err, "no formatter found for format 'text' and type 'any'")
	assert.Equal(t, []string{"json", "markdown", "text"}, registry.GetSupportedFormats())
}
