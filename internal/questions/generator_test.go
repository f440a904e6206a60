package questions

import (
	"context"
	"fmt"
	"testing"

	"skillpick/internal/ai/aitest"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProcess(mcq, coding, theory int) *types.Process {
	return &types.Process{
		ID:          "proc-1",
		Title:       "Backend Engineer",
		Description: "Build Go services",
		NumMCQ:      mcq,
		NumCoding:   coding,
		NumTheory:   theory,
		JDAnalysis:  types.JDAnalysis{Skills: []string{"go"}, RoleLevel: types.RoleLevelMid},
	}
}

func mcqItems(n int, prefix string) []map[string]any {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{
			"id":            fmt.Sprintf("%s%d", prefix, i+1),
			"question":      fmt.Sprintf("Question %s%d?", prefix, i+1),
			"options":       []string{"A", "B", "C"},
			"correct_index": i % 3,
		}
	}
	return items
}

func TestGenerateExactCounts(t *testing.T) {
	oracle := aitest.New().On(config.OperationQuestions, aitest.JSON(map[string]any{
		"mcq":    mcqItems(2, "m"),
		"coding": []map[string]any{{"id": "c1", "title": "Reverse", "description": "Reverse a string", "difficulty": "Easy"}},
		"theory": []map[string]any{{"id": "t1", "question": "Explain channels"}},
	}))
	gen := NewGenerator(oracle.Client(), errors.NewNopLogger())

	qs, err := gen.Generate(context.Background(), testProcess(2, 1, 1), &types.Candidate{ID: "cand-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, qs.ID)
	assert.Equal(t, "cand-1", qs.CandidateID)
	assert.Len(t, qs.MCQ, 2)
	assert.Len(t, qs.Coding, 1)
	assert.Len(t, qs.Theory, 1)
	assert.Equal(t, "easy", qs.Coding[0].Difficulty)
	assert.Equal(t, 1, oracle.CallCount(config.OperationQuestions))
}

func TestGenerateKeepsValidItemsAndRequestsMissing(t *testing.T) {
	first := mcqItems(3, "m")
	first[1]["options"] = []string{"same", "Same"} // duplicate options
	first[2]["correct_index"] = 7                 // out of range

	oracle := aitest.New().On(config.OperationQuestions,
		aitest.JSON(map[string]any{"mcq": first, "coding": []any{}, "theory": []any{}}),
		aitest.JSON(map[string]any{"mcq": mcqItems(2, "x"), "coding": []any{}, "theory": []any{}}),
	)
	gen := NewGenerator(oracle.Client(), nil)

	qs, err := gen.Generate(context.Background(), testProcess(3, 0, 0), &types.Candidate{ID: "cand-1"})
	require.NoError(t, err)
	require.Len(t, qs.MCQ, 3)
	assert.Equal(t, []string{"m1", "x1", "x2"}, []string{qs.MCQ[0].ID, qs.MCQ[1].ID, qs.MCQ[2].ID})

	calls := oracle.Calls(config.OperationQuestions)
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].UserPrompt, "exactly 2 items")
	assert.Contains(t, calls[1].UserPrompt, "must not reuse any of: m1")
	assert.Contains(t, calls[1].UserPrompt, "correct_index 7 is outside 0..2")
}

func TestGenerateRejectsOversizedSection(t *testing.T) {
	oracle := aitest.New().On(config.OperationQuestions,
		aitest.JSON(map[string]any{"mcq": mcqItems(4, "m"), "coding": []any{}, "theory": []any{}}),
		aitest.JSON(map[string]any{"mcq": mcqItems(2, "m"), "coding": []any{}, "theory": []any{}}),
	)

	qs, err := NewGenerator(oracle.Client(), nil).Generate(context.Background(), testProcess(2, 0, 0), &types.Candidate{ID: "c"})
	require.NoError(t, err)
	assert.Len(t, qs.MCQ, 2)
	assert.Equal(t, 2, oracle.CallCount(config.OperationQuestions))
	assert.Contains(t, oracle.Calls(config.OperationQuestions)[1].UserPrompt, `"mcq" had 4 items but exactly 2 were requested`)
}

func TestGenerateAssignsNamespacedIDs(t *testing.T) {
	oracle := aitest.New().On(config.OperationQuestions, aitest.JSON(map[string]any{
		"mcq": []map[string]any{
			{"question": "a?", "options": []string{"1", "2"}, "correct_index": 0},
			{"id": "dup", "question": "b?", "options": []string{"1", "2"}, "correct_index": 1},
		},
		"coding": []map[string]any{{"id": "dup", "description": "Write a parser\nwith tests"}},
		"theory": []map[string]any{{"question": "why?"}},
	}))

	qs, err := NewGenerator(oracle.Client(), nil).Generate(context.Background(), testProcess(2, 1, 1), &types.Candidate{ID: "c"})
	require.NoError(t, err)

	assert.Equal(t, "mcq-1", qs.MCQ[0].ID)
	assert.Equal(t, "dup", qs.MCQ[1].ID)
	assert.Equal(t, "code-1", qs.Coding[0].ID)
	assert.Equal(t, "Write a parser", qs.Coding[0].Title)
	assert.Equal(t, "theory-1", qs.Theory[0].ID)
}

func TestGenerateIncomplete(t *testing.T) {
	oracle := aitest.New().On(config.OperationQuestions,
		aitest.JSON(map[string]any{"mcq": mcqItems(1, "m"), "coding": []any{}, "theory": []any{}}),
		aitest.Text("not json at all"),
	)

	_, err := NewGenerator(oracle.Client(), nil).Generate(context.Background(), testProcess(2, 0, 0), &types.Candidate{ID: "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeGenerationIncomplete))
	assert.Equal(t, 3, oracle.CallCount(config.OperationQuestions))
}

func TestGenerateStopsOnCancel(t *testing.T) {
	oracle := aitest.New().On(config.OperationQuestions, aitest.Text("{}"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(oracle.Client(), nil).Generate(ctx, testProcess(1, 0, 0), &types.Candidate{ID: "c"})
	assert.ErrorIs(t, err, context.Canceled)
}
