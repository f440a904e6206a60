package screening

import (
	"context"
	stderrors "errors"
	"net/mail"
	"strings"
	"time"

	"skillpick/internal/errors"
	"skillpick/internal/events"
	"skillpick/internal/questions"
	"skillpick/internal/resume"
	"skillpick/internal/store"
	"skillpick/internal/types"

	"github.com/google/uuid"
)

// Messages are the user-facing texts of a registration outcome
type Messages struct {
	Accepted string
	Rejected string
}

// DefaultMessages are the texts the frontend expects
var DefaultMessages = Messages{
	Accepted: "Resume approved! Test unlocked.",
	Rejected: "Your profile does not match our requirements.",
}

// Registration runs candidate registration end to end: screening, candidate
// creation and, on accept, question generation and test issue.
type Registration struct {
	store     store.Store
	screener  *Screener
	generator *questions.Generator
	publisher events.Publisher
	messages  Messages
	logger    *errors.Logger
}

// NewRegistration wires the registration pipeline
func NewRegistration(s store.Store, screener *Screener, generator *questions.Generator, publisher events.Publisher, messages Messages, logger *errors.Logger) *Registration {
	if messages.Accepted == "" {
		messages.Accepted = DefaultMessages.Accepted
	}
	if messages.Rejected == "" {
		messages.Rejected = DefaultMessages.Rejected
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Registration{
		store:     s,
		screener:  screener,
		generator: generator,
		publisher: publisher,
		messages:  messages,
		logger:    logger,
	}
}

// Register screens a resume for the process behind token. Screening happens
// at most once per (process, email).
func (r *Registration) Register(ctx context.Context, token, name, email string, file resume.File) (*types.RegistrationResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Name is required", nil)
	}
	email, err := validateEmail(email)
	if err != nil {
		return nil, err
	}

	process, err := r.store.GetProcessByToken(ctx, token)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError(errors.ErrCodeTokenNotFound, "Invalid or expired test link", nil)
		}
		return nil, storageError(err)
	}

	if _, err := r.store.FindCandidateByEmail(ctx, process.ID, email); err == nil {
		return nil, duplicateRegistration()
	} else if !stderrors.Is(err, store.ErrNotFound) {
		return nil, storageError(err)
	}

	text, err := resume.ExtractText(file)
	if err != nil {
		return nil, err
	}

	screen, err := r.screener.Screen(ctx, process, text)
	if err != nil {
		return nil, err
	}

	candidate := &types.Candidate{
		ID:                  uuid.NewString(),
		ProcessID:           process.ID,
		Name:                name,
		Email:               email,
		ResumeText:          text,
		ResumeMatchScore:    screen.MatchScore,
		ResumeSummary:       screen.Summary,
		SkillOverlap:        screen.SkillOverlap,
		ExperienceRelevance: screen.ExperienceRelevance,
		State:               types.StateRejected,
		CreatedAt:           time.Now().UTC(),
	}
	if screen.Accepted {
		candidate.State = types.StateRegistered
	}

	// The insert is the atomic (process, email) claim; a concurrent
	// registration that passed the early check loses here.
	if err := r.store.CreateCandidate(ctx, candidate); err != nil {
		if stderrors.Is(err, store.ErrDuplicate) {
			return nil, duplicateRegistration()
		}
		return nil, storageError(err)
	}

	if !screen.Accepted {
		r.emitRegistered(ctx, process.ID, candidate.ID, types.RegistrationRejected, screen.MatchScore)
		r.logger.Info("Candidate rejected at screening",
			"process_id", process.ID,
			"candidate_id", candidate.ID,
			"match_score", screen.MatchScore)
		return &types.RegistrationResult{
			Status:           types.RegistrationRejected,
			ResumeMatchScore: screen.MatchScore,
			ResumeSummary:    screen.Summary,
			Message:          r.messages.Rejected,
		}, nil
	}

	// A candidate never stays registered without a test: on failure the row
	// is removed and the same email may register again.
	qs, err := r.generator.Generate(ctx, process, candidate)
	if err != nil {
		r.release(ctx, candidate.ID)
		return nil, err
	}
	if err := r.store.IssueTest(ctx, candidate.ID, qs); err != nil {
		r.release(ctx, candidate.ID)
		return nil, storageError(err)
	}
	r.emitRegistered(ctx, process.ID, candidate.ID, types.RegistrationAccepted, screen.MatchScore)

	r.logger.Info("Candidate accepted and test issued",
		"process_id", process.ID,
		"candidate_id", candidate.ID,
		"match_score", screen.MatchScore,
		"question_set_id", qs.ID)

	return &types.RegistrationResult{
		Status:           types.RegistrationAccepted,
		CandidateID:      candidate.ID,
		Questions:        qs.CandidateView(),
		ResumeMatchScore: screen.MatchScore,
		ResumeSummary:    screen.Summary,
		Message:          r.messages.Accepted,
	}, nil
}

func (r *Registration) emitRegistered(ctx context.Context, processID, candidateID, status string, score float64) {
	events.Emit(ctx, r.publisher, r.logger, events.New(events.CandidateRegistered, processID, map[string]any{
		"candidate_id": candidateID,
		"status":       status,
		"match_score":  score,
	}))
}

// release drops a candidate whose test could not be issued. It runs even when
// the request context is already cancelled.
func (r *Registration) release(ctx context.Context, candidateID string) {
	if err := r.store.DeleteCandidate(context.WithoutCancel(ctx), candidateID); err != nil {
		r.logger.LogError(err, "Failed to release candidate after test generation failed", "candidate_id", candidateID)
		return
	}
	r.logger.Warn("Candidate released after test generation failed", "candidate_id", candidateID)
}

// validateEmail accepts a bare local@domain address and returns it normalized
func validateEmail(email string) (string, error) {
	email = types.NormalizeEmail(email)
	invalid := errors.NewValidationError(errors.ErrCodeInvalidRequest, "A valid email address is required", nil)
	if email == "" {
		return "", invalid
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", invalid
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || !strings.Contains(domain, ".") {
		return "", invalid
	}
	return email, nil
}

func duplicateRegistration() error {
	return errors.NewDuplicateRegistrationError(errors.ErrCodeAlreadyRegistered,
		"You have already registered for this test", nil)
}

func storageError(err error) error {
	return errors.NewIOError(errors.ErrCodeStorageFailed, "Failed to access storage", err)
}
