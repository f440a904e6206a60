package jd

import (
	"context"
	"testing"

	"skillpick/internal/ai/aitest"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeNormalizesPayload(t *testing.T) {
	oracle := aitest.New().On(config.OperationJD, aitest.JSON(map[string]any{
		"skills":                  []string{" Go ", "go", "SQL", "", "Kubernetes"},
		"tech_stack":              []string{"PostgreSQL", " "},
		"role_level":              "Senior",
		"experience_expectations": " 5+ years building backend services ",
	}))
	analyzer := NewAnalyzer(oracle.Client(), errors.NewNopLogger())

	got, err := analyzer.Analyze(context.Background(), "Backend Engineer", "We build APIs in Go.", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "SQL", "Kubernetes"}, got.Skills)
	assert.Equal(t, []string{"PostgreSQL"}, got.TechStack)
	assert.Equal(t, types.RoleLevelSenior, got.RoleLevel)
	assert.Equal(t, "5+ years building backend services", got.ExperienceExpectations)

	calls := oracle.Calls(config.OperationJD)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].UserPrompt, "We build APIs in Go.")
}

func TestAnalyzeUnknownRoleLevel(t *testing.T) {
	tests := []struct {
		name  string
		level any
	}{
		{"absent", nil},
		{"outside enum", "principal"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := map[string]any{
				"skills":                  []string{"go"},
				"tech_stack":              []string{},
				"experience_expectations": "some",
			}
			if tt.level != nil {
				payload["role_level"] = tt.level
			}
			oracle := aitest.New().On(config.OperationJD, aitest.JSON(payload))

			got, err := NewAnalyzer(oracle.Client(), nil).Analyze(context.Background(), "t", "d", "")
			require.NoError(t, err)
			assert.Equal(t, types.RoleLevelUnknown, got.RoleLevel)
		})
	}
}

func TestAnalyzeRetriesWithCorrection(t *testing.T) {
	oracle := aitest.New().On(config.OperationJD,
		aitest.JSON(map[string]any{"skills": []string{}, "experience_expectations": "x"}),
		aitest.JSON(map[string]any{"skills": []string{"rust"}, "role_level": "mid", "experience_expectations": "3 years"}),
	)

	got, err := NewAnalyzer(oracle.Client(), nil).Analyze(context.Background(), "t", "d", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"rust"}, got.Skills)

	calls := oracle.Calls(config.OperationJD)
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].UserPrompt, `"skills" must list at least one non-empty skill`)
}

func TestAnalyzeContractViolation(t *testing.T) {
	oracle := aitest.New().On(config.OperationJD, aitest.Text("I cannot help with that."))

	_, err := NewAnalyzer(oracle.Client(), nil).Analyze(context.Background(), "t", "d", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeOracleContractViolation))
	assert.Equal(t, 3, oracle.CallCount(config.OperationJD))
}
