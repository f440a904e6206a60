// Package scoring combines component scores into an overall score, a verdict
// and a recruiter-facing narrative.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"skillpick/internal/ai"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/types"
)

// Weights are the relative weights of the four components
type Weights struct {
	Resume float64
	MCQ    float64
	Coding float64
	Theory float64
}

// Thresholds are the lower bounds of each verdict bucket
type Thresholds struct {
	StrongHire float64
	Hire       float64
	Borderline float64
}

// DefaultWeights and DefaultThresholds match the shipped configuration
var (
	DefaultWeights    = Weights{Resume: 0.20, MCQ: 0.20, Coding: 0.35, Theory: 0.25}
	DefaultThresholds = Thresholds{StrongHire: 85, Hire: 65, Borderline: 45}
)

// Components are the four scores of a candidate. The Empty flags mark
// sections that had no questions.
type Components struct {
	Resume float64
	MCQ    float64
	Coding float64
	Theory float64

	EmptyMCQ    bool
	EmptyCoding bool
	EmptyTheory bool
}

// Aggregate is the outcome of combining Components
type Aggregate struct {
	Overall float64
	Verdict types.Verdict
}

// Narrative is the qualitative part of a scorecard
type Narrative struct {
	Strengths  []string
	Weaknesses []string
	Summary    string
}

// Engine aggregates scores. Aggregate and Verdict are pure; Summarize calls
// the oracle.
type Engine struct {
	weights      Weights
	thresholds   Thresholds
	excludeEmpty bool
	client       *ai.Client
	logger       *errors.Logger
}

// NewEngine builds an engine from the scoring configuration
func NewEngine(cfg config.ScoringConfig, client *ai.Client, logger *errors.Logger) *Engine {
	return &Engine{
		weights: Weights{
			Resume: cfg.Weights.Resume,
			MCQ:    cfg.Weights.MCQ,
			Coding: cfg.Weights.Coding,
			Theory: cfg.Weights.Theory,
		},
		thresholds: Thresholds{
			StrongHire: cfg.Thresholds.StrongHire,
			Hire:       cfg.Thresholds.Hire,
			Borderline: cfg.Thresholds.Borderline,
		},
		excludeEmpty: cfg.ExcludeEmptySections,
		client:       client,
		logger:       logger,
	}
}

// NewDefaultEngine builds an engine with the default weights and thresholds
func NewDefaultEngine(client *ai.Client, logger *errors.Logger) *Engine {
	return &Engine{weights: DefaultWeights, thresholds: DefaultThresholds, client: client, logger: logger}
}

// Aggregate computes the weighted overall score and its verdict. Weights are
// normalized by their sum. With excludeEmptySections on, empty sections drop
// out of the weighting instead of receiving vacuous credit.
func (e *Engine) Aggregate(c Components) Aggregate {
	w := e.weights
	if e.excludeEmpty {
		if c.EmptyMCQ {
			w.MCQ = 0
		}
		if c.EmptyCoding {
			w.Coding = 0
		}
		if c.EmptyTheory {
			w.Theory = 0
		}
	}

	total := w.Resume + w.MCQ + w.Coding + w.Theory
	var overall float64
	if total > 0 {
		overall = (w.Resume*clamp(c.Resume) +
			w.MCQ*clamp(c.MCQ) +
			w.Coding*clamp(c.Coding) +
			w.Theory*clamp(c.Theory)) / total
	}
	overall = clamp(overall)

	return Aggregate{Overall: overall, Verdict: e.Verdict(overall)}
}

// Verdict maps an overall score onto its bucket
func (e *Engine) Verdict(overall float64) types.Verdict {
	switch {
	case overall >= e.thresholds.StrongHire:
		return types.VerdictStrongHire
	case overall >= e.thresholds.Hire:
		return types.VerdictHire
	case overall >= e.thresholds.Borderline:
		return types.VerdictBorderline
	default:
		return types.VerdictReject
	}
}

func clamp(v float64) float64 {
	return min(max(v, 0), 100)
}

// Report is what the summary prompt sees
type Report struct {
	ResumeMatchScore float64           `json:"resume_match_score"`
	ResumeSummary    string            `json:"resume_summary,omitempty"`
	MCQScore         float64           `json:"mcq_score"`
	CodingScore      float64           `json:"coding_score"`
	TheoryScore      float64           `json:"theory_score"`
	OverallScore     float64           `json:"overall_score"`
	Verdict          types.Verdict     `json:"final_verdict"`
	ItemScores       []types.ItemScore `json:"item_feedback,omitempty"`
}

type summaryPromptData struct {
	JDAnalysis string
	Report     string
}

type narrativePayload struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Summary    string   `json:"summary"`
}

// Summarize asks the oracle for strengths, weaknesses and a summary. It never
// fails: on any oracle problem it falls back to empty lists and a templated
// summary.
func (e *Engine) Summarize(ctx context.Context, analysis types.JDAnalysis, report Report) Narrative {
	fallback := Narrative{
		Strengths:  []string{},
		Weaknesses: []string{},
		Summary:    FallbackSummary(report),
	}
	if e.client == nil {
		return fallback
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fallback
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fallback
	}

	out, err := ai.Ask(ctx, e.client, config.OperationSummary,
		summaryPromptData{JDAnalysis: string(analysisJSON), Report: string(reportJSON)},
		validateNarrative)
	if err != nil {
		e.logger.Warn("Summary generation failed, using template summary", "error", err.Error())
		return fallback
	}

	return Narrative{Strengths: out.Strengths, Weaknesses: out.Weaknesses, Summary: out.Summary}
}

func validateNarrative(p *narrativePayload) error {
	p.Strengths = types.DedupeFold(p.Strengths)
	p.Weaknesses = types.DedupeFold(p.Weaknesses)
	p.Summary = strings.TrimSpace(p.Summary)
	if p.Summary == "" {
		return ai.Invalid(`"summary" must be a non-empty string`)
	}
	return nil
}

// FallbackSummary is the templated summary used when the oracle is unavailable
func FallbackSummary(r Report) string {
	return fmt.Sprintf("Overall score %.1f (%s). Resume %.1f, MCQ %.1f, coding %.1f, theory %.1f.",
		r.OverallScore, r.Verdict, r.ResumeMatchScore, r.MCQScore, r.CodingScore, r.TheoryScore)
}
