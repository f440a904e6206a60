// Package screening matches resumes against a process and runs candidate registration.
package screening

import (
	"context"
	"encoding/json"
	"strings"

	"skillpick/internal/ai"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/resume"
	"skillpick/internal/types"
)

// Result is the outcome of screening one resume
type Result struct {
	MatchScore          float64  `json:"match_score"`
	Summary             string   `json:"summary"`
	SkillOverlap        []string `json:"skill_overlap"`
	ExperienceRelevance string   `json:"experience_relevance"`
	Accepted            bool     `json:"accepted"`
}

// Screener scores resumes with the oracle and applies the decision threshold
type Screener struct {
	client         *ai.Client
	threshold      float64
	maxResumeChars int
	logger         *errors.Logger
}

// NewScreener creates a Screener from the screening configuration
func NewScreener(client *ai.Client, cfg config.ScreeningConfig, logger *errors.Logger) *Screener {
	return &Screener{
		client:         client,
		threshold:      cfg.Threshold,
		maxResumeChars: cfg.MaxResumeChars,
		logger:         logger,
	}
}

type promptData struct {
	Title       string
	Description string
	JDAnalysis  string
	ResumeText  string
}

type matchPayload struct {
	MatchScore          *float64 `json:"match_score"`
	Summary             string   `json:"summary"`
	SkillOverlap        []string `json:"skill_overlap"`
	ExperienceRelevance string   `json:"experience_relevance"`
}

// Screen scores resumeText against the process. An out-of-range score is a
// contract violation and is retried, never clamped.
func (s *Screener) Screen(ctx context.Context, process *types.Process, resumeText string) (*Result, error) {
	analysisJSON, err := json.Marshal(process.JDAnalysis)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalServerFailure, "Failed to encode job analysis", err)
	}

	out, err := ai.Ask(ctx, s.client, config.OperationResume, promptData{
		Title:       process.Title,
		Description: process.Description,
		JDAnalysis:  string(analysisJSON),
		ResumeText:  resume.Truncate(resumeText, s.maxResumeChars),
	}, validateMatch)
	if err != nil {
		return nil, err
	}

	result := &Result{
		MatchScore:          *out.MatchScore,
		Summary:             out.Summary,
		SkillOverlap:        out.SkillOverlap,
		ExperienceRelevance: out.ExperienceRelevance,
		Accepted:            *out.MatchScore >= s.threshold,
	}
	s.logger.Debug("Resume screened",
		"process_id", process.ID,
		"match_score", result.MatchScore,
		"threshold", s.threshold,
		"accepted", result.Accepted)
	return result, nil
}

func validateMatch(p *matchPayload) error {
	if p.MatchScore == nil {
		return ai.Invalid(`"match_score" is missing`)
	}
	if *p.MatchScore < 0 || *p.MatchScore > 100 {
		return ai.Invalid(`"match_score" must be between 0 and 100, got %g`, *p.MatchScore)
	}
	p.Summary = strings.TrimSpace(p.Summary)
	if p.Summary == "" {
		return ai.Invalid(`"summary" must be a non-empty string`)
	}
	p.SkillOverlap = types.DedupeFold(p.SkillOverlap)
	p.ExperienceRelevance = strings.TrimSpace(p.ExperienceRelevance)
	return nil
}
