// Package jd turns a free-text job description into a structured JDAnalysis.
package jd

import (
	"context"
	"strings"

	"skillpick/internal/ai"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/types"
)

// Analyzer extracts skills, stack and seniority from job descriptions
type Analyzer struct {
	client *ai.Client
	logger *errors.Logger
}

// NewAnalyzer creates an Analyzer backed by client
func NewAnalyzer(client *ai.Client, logger *errors.Logger) *Analyzer {
	return &Analyzer{client: client, logger: logger}
}

type promptData struct {
	Title        string
	Description  string
	ExtraContext string
}

type analysisPayload struct {
	Skills                 []string `json:"skills"`
	TechStack              []string `json:"tech_stack"`
	RoleLevel              string   `json:"role_level"`
	ExperienceExpectations string   `json:"experience_expectations"`
}

// Analyze asks the oracle for the structured view of a job description.
// It returns an oracle_contract_violation error when no valid analysis
// arrives within the retry bound.
func (a *Analyzer) Analyze(ctx context.Context, title, description, extraContext string) (types.JDAnalysis, error) {
	data := promptData{Title: title, Description: description, ExtraContext: extraContext}

	out, err := ai.Ask(ctx, a.client, config.OperationJD, data, validateAnalysis)
	if err != nil {
		return types.JDAnalysis{}, err
	}

	analysis := types.JDAnalysis{
		Skills:                 out.Skills,
		TechStack:              out.TechStack,
		RoleLevel:              types.ParseRoleLevel(out.RoleLevel),
		ExperienceExpectations: out.ExperienceExpectations,
	}
	a.logger.Debug("Job description analyzed",
		"skills", len(analysis.Skills),
		"tech_stack", len(analysis.TechStack),
		"role_level", analysis.RoleLevel)
	return analysis, nil
}

// validateAnalysis normalizes the payload in place and rejects it when a
// required field is missing
func validateAnalysis(p *analysisPayload) error {
	p.Skills = types.DedupeFold(p.Skills)
	if len(p.Skills) == 0 {
		return ai.Invalid(`"skills" must list at least one non-empty skill`)
	}

	stack := make([]string, 0, len(p.TechStack))
	for _, tech := range p.TechStack {
		if tech = strings.TrimSpace(tech); tech != "" {
			stack = append(stack, tech)
		}
	}
	p.TechStack = stack

	p.ExperienceExpectations = strings.TrimSpace(p.ExperienceExpectations)
	if p.ExperienceExpectations == "" {
		return ai.Invalid(`"experience_expectations" must be a non-empty string`)
	}
	return nil
}
