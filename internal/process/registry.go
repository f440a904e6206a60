// Package process owns hiring processes and orchestrates the candidate
// pipeline behind the REST surface.
package process

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"skillpick/internal/ai"
	"skillpick/internal/analytics"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/evaluation"
	"skillpick/internal/events"
	"skillpick/internal/jd"
	"skillpick/internal/questions"
	"skillpick/internal/resume"
	"skillpick/internal/screening"
	"skillpick/internal/scoring"
	"skillpick/internal/store"
	"skillpick/internal/types"

	"github.com/google/uuid"
)

// tokenBytes is the entropy of a public token (192 bits)
const tokenBytes = 24

// CreateProcessInput is the recruiter's request to open a hiring process
type CreateProcessInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ExtraContext string `json:"extra_context"`
	NumMCQ       int    `json:"num_mcq"`
	NumCoding    int    `json:"num_coding"`
	NumTheory    int    `json:"num_theory"`
}

// Recorder receives business metrics. *observability.Metrics implements it.
type Recorder interface {
	RecordProcessCreated(ctx context.Context)
	RecordRegistration(ctx context.Context, status string)
	RecordEvaluation(ctx context.Context, verdict string)
}

type nopRecorder struct{}

func (nopRecorder) RecordProcessCreated(context.Context)       {}
func (nopRecorder) RecordRegistration(context.Context, string) {}
func (nopRecorder) RecordEvaluation(context.Context, string)   {}

// Deps are the collaborators a Registry is built from
type Deps struct {
	Store     store.Store
	Client    *ai.Client
	Publisher events.Publisher
	Recorder  Recorder
}

// Registry creates processes and is the single entry point the HTTP layer
// uses for the whole candidate pipeline.
type Registry struct {
	store        store.Store
	analyzer     *jd.Analyzer
	registration *screening.Registration
	evaluator    *evaluation.Evaluator
	analytics    *analytics.Aggregator
	publisher    events.Publisher
	recorder     Recorder
	limits       config.LimitsConfig
	instructions string
	tokens       func() (string, error)
	logger       *errors.Logger
}

// New wires every pipeline component from cfg and deps
func New(cfg *config.Config, deps Deps, logger *errors.Logger) *Registry {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Registry{
		store:    deps.Store,
		analyzer: jd.NewAnalyzer(deps.Client, logger),
		registration: screening.NewRegistration(
			deps.Store,
			screening.NewScreener(deps.Client, cfg.Screening, logger),
			questions.NewGenerator(deps.Client, logger),
			publisher,
			screening.Messages{Accepted: cfg.App.AcceptedMessage, Rejected: cfg.App.RejectedMessage},
			logger,
		),
		evaluator:    evaluation.NewEvaluator(deps.Store, deps.Client, scoring.NewEngine(cfg.Scoring, deps.Client, logger), publisher, cfg.Scoring.VacuousCredit, logger),
		analytics:    analytics.NewAggregator(deps.Store, logger),
		publisher:    publisher,
		recorder:     recorder,
		limits:       cfg.Limits,
		instructions: cfg.App.Instructions,
		tokens:       newToken,
		logger:       logger,
	}
}

// CreateProcess validates the input, analyzes the job description and
// persists the process. Nothing is stored when the analysis fails.
func (r *Registry) CreateProcess(ctx context.Context, in CreateProcessInput) (*types.Process, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ExtraContext = strings.TrimSpace(in.ExtraContext)
	if err := r.validate(in); err != nil {
		return nil, err
	}

	analysis, err := r.analyzer.Analyze(ctx, in.Title, in.Description, in.ExtraContext)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		appErr := errors.NewAnalysisError(errors.ErrCodeJDAnalysisFailed, "Failed to analyze the job description", err)
		r.logger.LogError(appErr, "Job description analysis failed", "title", in.Title)
		return nil, appErr
	}

	process := &types.Process{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		ExtraContext: in.ExtraContext,
		NumMCQ:       in.NumMCQ,
		NumCoding:    in.NumCoding,
		NumTheory:    in.NumTheory,
		JDAnalysis:   analysis,
		CreatedAt:    time.Now().UTC(),
	}

	// Retry on a token collision
	const attempts = 3
	for i := 0; ; i++ {
		token, err := r.tokens()
		if err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeInternalServerFailure, "Failed to generate a test link", err)
		}
		process.PublicToken = token

		err = r.store.CreateProcess(ctx, process)
		if err == nil {
			break
		}
		if !stderrors.Is(err, store.ErrDuplicate) || i+1 >= attempts {
			return nil, storageError(err)
		}
	}

	r.recorder.RecordProcessCreated(ctx)
	events.Emit(ctx, r.publisher, r.logger, events.New(events.ProcessCreated, process.ID, map[string]any{
		"title":      process.Title,
		"num_mcq":    process.NumMCQ,
		"num_coding": process.NumCoding,
		"num_theory": process.NumTheory,
	}))
	r.logger.Info("Process created",
		"process_id", process.ID,
		"role_level", process.JDAnalysis.RoleLevel,
		"skills", len(process.JDAnalysis.Skills))
	return process, nil
}

func (r *Registry) validate(in CreateProcessInput) error {
	invalid := func(format string, args ...any) error {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, fmt.Sprintf(format, args...), nil)
	}

	if in.Title == "" {
		return invalid("Title is required")
	}
	if utf8.RuneCountInString(in.Title) > r.limits.MaxTitleLength {
		return invalid("Title must be at most %d characters", r.limits.MaxTitleLength)
	}
	if in.Description == "" {
		return invalid("Description is required")
	}

	counts := []struct {
		field string
		value int
		max   int
	}{
		{"num_mcq", in.NumMCQ, r.limits.MaxMCQ},
		{"num_coding", in.NumCoding, r.limits.MaxCoding},
		{"num_theory", in.NumTheory, r.limits.MaxTheory},
	}
	for _, c := range counts {
		if c.value < 0 || c.value > c.max {
			return invalid("%s must be between 0 and %d", c.field, c.max)
		}
	}
	if in.NumMCQ+in.NumCoding+in.NumTheory == 0 {
		return invalid("At least one question is required")
	}
	return nil
}

// GetProcess returns a process by id
func (r *Registry) GetProcess(ctx context.Context, id string) (*types.Process, error) {
	process, err := r.store.GetProcess(ctx, id)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError(errors.ErrCodeProcessNotFound, "Process not found", nil)
		}
		return nil, storageError(err)
	}
	return process, nil
}

// GetPublicView returns what a candidate holding token may see
func (r *Registry) GetPublicView(ctx context.Context, token string) (*types.PublicView, error) {
	process, err := r.store.GetProcessByToken(ctx, token)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError(errors.ErrCodeTokenNotFound, "Invalid or expired test link", nil)
		}
		return nil, storageError(err)
	}
	return &types.PublicView{
		Title:        process.Title,
		Description:  process.Description,
		Instructions: r.instructions,
		JDAnalysis:   process.JDAnalysis,
		NumMCQ:       process.NumMCQ,
		NumCoding:    process.NumCoding,
		NumTheory:    process.NumTheory,
	}, nil
}

// Register screens a candidate's resume and issues the test on accept
func (r *Registry) Register(ctx context.Context, token, name, email string, file resume.File) (*types.RegistrationResult, error) {
	result, err := r.registration.Register(ctx, token, name, email, file)
	if err != nil {
		return nil, err
	}
	r.recorder.RecordRegistration(ctx, result.Status)
	return result, nil
}

// Submit grades a candidate's answers
func (r *Registry) Submit(ctx context.Context, candidateID string, in evaluation.SubmissionInput) (*types.Scorecard, error) {
	scorecard, err := r.evaluator.Submit(ctx, candidateID, in)
	if err != nil {
		return nil, err
	}
	r.recorder.RecordEvaluation(ctx, string(scorecard.FinalVerdict))
	return scorecard, nil
}

// Result returns the scorecard of an evaluated candidate
func (r *Registry) Result(ctx context.Context, candidateID string) (*types.Scorecard, error) {
	return r.evaluator.Result(ctx, candidateID)
}

// Analytics returns the analytics of a process
func (r *Registry) Analytics(ctx context.Context, processID string) (*types.ProcessAnalytics, error) {
	return r.analytics.Analytics(ctx, processID)
}

// ExportXLSX writes the analytics workbook of a process to w
func (r *Registry) ExportXLSX(ctx context.Context, processID string, w io.Writer) error {
	return r.analytics.ExportXLSX(ctx, processID, w)
}

// newToken returns an unguessable URL-safe token
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func storageError(err error) error {
	return errors.NewIOError(errors.ErrCodeStorageFailed, "Failed to access storage", err)
}
