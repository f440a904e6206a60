// Package questions generates the tailored assessment issued to an accepted candidate.
package questions

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"skillpick/internal/ai"
	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/types"

	"github.com/google/uuid"
)

// Generator produces question sets with exactly the requested counts
type Generator struct {
	client *ai.Client
	logger *errors.Logger
}

// NewGenerator creates a Generator backed by client
func NewGenerator(client *ai.Client, logger *errors.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

type promptData struct {
	Title        string
	Description  string
	JDAnalysis   string
	ExtraContext string
	NumMCQ       int
	NumCoding    int
	NumTheory    int
	UsedIDs      string
}

type rawMCQ struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_index"`
	Skill        string   `json:"skill"`
}

type rawCoding struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	Difficulty          string `json:"difficulty"`
	ExpectedTimeMinutes int    `json:"expected_time_minutes"`
	Skill               string `json:"skill"`
}

type rawTheory struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Skill    string `json:"skill"`
}

type generatedSet struct {
	MCQ    []rawMCQ    `json:"mcq"`
	Coding []rawCoding `json:"coding"`
	Theory []rawTheory `json:"theory"`
}

// Generate asks the oracle for the process's question counts. Valid items are
// kept across rounds and each retry only requests what is still missing.
// A round that returns more items than requested for a section contributes
// nothing for that section. When the counts are still short after the retry
// bound a generation_incomplete error is returned.
func (g *Generator) Generate(ctx context.Context, process *types.Process, candidate *types.Candidate) (*types.QuestionSet, error) {
	analysisJSON, err := json.Marshal(process.JDAnalysis)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalServerFailure, "Failed to encode job analysis", err)
	}

	b := newBuilder(process.NumMCQ, process.NumCoding, process.NumTheory)
	opts := g.client.Options(config.OperationQuestions)
	rounds := opts.Retries
	if rounds < 0 {
		rounds = ai.DefaultContractRetries
	}
	rounds++
	// Each round is a single oracle attempt; the corrective loop lives here.
	opts.Retries = 0

	var feedback []string
	for round := 1; round <= rounds && !b.complete(); round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mcq, coding, theory := b.missing()
		spec, err := g.client.Prompts().Spec(config.OperationQuestions, promptData{
			Title:        process.Title,
			Description:  process.Description,
			JDAnalysis:   string(analysisJSON),
			ExtraContext: process.ExtraContext,
			NumMCQ:       mcq,
			NumCoding:    coding,
			NumTheory:    theory,
			UsedIDs:      strings.Join(b.usedIDs(), ", "),
		})
		if err != nil {
			return nil, err
		}
		if len(feedback) > 0 {
			spec.UserPrompt += "\n\nProblems with your previous response:\n- " + strings.Join(feedback, "\n- ")
		}

		out, err := ai.Judge[generatedSet](ctx, g.client.Oracle(), spec, nil, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			feedback = []string{rootCause(err)}
			continue
		}

		feedback = b.merge(out)
		g.logger.Debug("Question generation round finished",
			"candidate_id", candidate.ID,
			"round", round,
			"missing_mcq", b.needMCQ-len(b.set.MCQ),
			"missing_coding", b.needCoding-len(b.set.Coding),
			"missing_theory", b.needTheory-len(b.set.Theory))
	}

	if !b.complete() {
		mcq, coding, theory := b.missing()
		appErr := errors.NewGenerationIncompleteError(errors.ErrCodeQuestionsIncomplete,
			"Could not generate the complete test. Please try again later.",
			fmt.Errorf("still missing %d mcq, %d coding and %d theory items after %d rounds", mcq, coding, theory, rounds))
		g.logger.LogError(appErr, "Question generation incomplete", "candidate_id", candidate.ID)
		return nil, appErr
	}

	b.set.ID = uuid.NewString()
	b.set.CandidateID = candidate.ID
	return &b.set, nil
}

// rootCause unwraps the oracle contract error down to the reason the
// attempt was rejected
func rootCause(err error) string {
	var contractErr *ai.ContractError
	if stderrors.As(err, &contractErr) && contractErr.Cause != nil {
		return contractErr.Cause.Error()
	}
	return err.Error()
}

// builder accumulates validated items until every section is full
type builder struct {
	needMCQ, needCoding, needTheory int
	set                             types.QuestionSet
	ids                             map[string]struct{}
	order                           []string
}

func newBuilder(mcq, coding, theory int) *builder {
	return &builder{
		needMCQ:    mcq,
		needCoding: coding,
		needTheory: theory,
		set: types.QuestionSet{
			MCQ:    make([]types.MCQItem, 0, mcq),
			Coding: make([]types.CodingItem, 0, coding),
			Theory: make([]types.TheoryItem, 0, theory),
		},
		ids: make(map[string]struct{}),
	}
}

func (b *builder) missing() (mcq, coding, theory int) {
	return b.needMCQ - len(b.set.MCQ), b.needCoding - len(b.set.Coding), b.needTheory - len(b.set.Theory)
}

func (b *builder) complete() bool {
	mcq, coding, theory := b.missing()
	return mcq == 0 && coding == 0 && theory == 0
}

func (b *builder) usedIDs() []string {
	return b.order
}

// claimID keeps the oracle's id when it is new, otherwise assigns the next
// free "<prefix>-N"
func (b *builder) claimID(id, prefix string) string {
	id = strings.TrimSpace(id)
	if _, taken := b.ids[id]; id == "" || taken {
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s-%d", prefix, n)
			if _, taken := b.ids[candidate]; !taken {
				id = candidate
				break
			}
		}
	}
	b.ids[id] = struct{}{}
	b.order = append(b.order, id)
	return id
}

// merge adds the valid items of one round and returns feedback for the next
func (b *builder) merge(out generatedSet) []string {
	var feedback []string
	mcqMissing, codingMissing, theoryMissing := b.missing()

	switch {
	case len(out.MCQ) > mcqMissing:
		feedback = append(feedback, fmt.Sprintf(`"mcq" had %d items but exactly %d were requested`, len(out.MCQ), mcqMissing))
	default:
		for i, item := range out.MCQ {
			mcq, problem := validMCQ(item)
			if problem != "" {
				feedback = append(feedback, fmt.Sprintf("mcq item %d was dropped: %s", i+1, problem))
				continue
			}
			mcq.ID = b.claimID(item.ID, "mcq")
			b.set.MCQ = append(b.set.MCQ, mcq)
		}
	}

	switch {
	case len(out.Coding) > codingMissing:
		feedback = append(feedback, fmt.Sprintf(`"coding" had %d items but exactly %d were requested`, len(out.Coding), codingMissing))
	default:
		for i, item := range out.Coding {
			coding, problem := validCoding(item)
			if problem != "" {
				feedback = append(feedback, fmt.Sprintf("coding item %d was dropped: %s", i+1, problem))
				continue
			}
			coding.ID = b.claimID(item.ID, "code")
			b.set.Coding = append(b.set.Coding, coding)
		}
	}

	switch {
	case len(out.Theory) > theoryMissing:
		feedback = append(feedback, fmt.Sprintf(`"theory" had %d items but exactly %d were requested`, len(out.Theory), theoryMissing))
	default:
		for i, item := range out.Theory {
			question := strings.TrimSpace(item.Question)
			if question == "" {
				feedback = append(feedback, fmt.Sprintf("theory item %d was dropped: question is empty", i+1))
				continue
			}
			b.set.Theory = append(b.set.Theory, types.TheoryItem{
				ID:       b.claimID(item.ID, "theory"),
				Question: question,
				Skill:    strings.TrimSpace(item.Skill),
			})
		}
	}

	return feedback
}

func validMCQ(item rawMCQ) (types.MCQItem, string) {
	question := strings.TrimSpace(item.Question)
	if question == "" {
		return types.MCQItem{}, "question is empty"
	}

	options := make([]string, len(item.Options))
	seen := make(map[string]struct{}, len(item.Options))
	for i, opt := range item.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return types.MCQItem{}, "options must not be empty strings"
		}
		key := strings.ToLower(opt)
		if _, dup := seen[key]; dup {
			return types.MCQItem{}, fmt.Sprintf("option %q appears twice", opt)
		}
		seen[key] = struct{}{}
		options[i] = opt
	}
	if len(options) < 2 {
		return types.MCQItem{}, "at least 2 distinct options are required"
	}
	if item.CorrectIndex == nil {
		return types.MCQItem{}, "correct_index is missing"
	}
	if *item.CorrectIndex < 0 || *item.CorrectIndex >= len(options) {
		return types.MCQItem{}, fmt.Sprintf("correct_index %d is outside 0..%d", *item.CorrectIndex, len(options)-1)
	}

	return types.MCQItem{
		Question:     question,
		Options:      options,
		CorrectIndex: *item.CorrectIndex,
		Skill:        strings.TrimSpace(item.Skill),
	}, ""
}

func validCoding(item rawCoding) (types.CodingItem, string) {
	title := strings.TrimSpace(item.Title)
	description := strings.TrimSpace(item.Description)
	if description == "" {
		return types.CodingItem{}, "description is empty"
	}
	if title == "" {
		title = firstLine(description)
	}

	difficulty := strings.ToLower(strings.TrimSpace(item.Difficulty))
	switch difficulty {
	case "easy", "medium", "hard":
	default:
		difficulty = ""
	}

	return types.CodingItem{
		Title:               title,
		Description:         description,
		Difficulty:          difficulty,
		ExpectedTimeMinutes: max(item.ExpectedTimeMinutes, 0),
		Skill:               strings.TrimSpace(item.Skill),
	}, ""
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	const maxTitle = 80
	if runes := []rune(line); len(runes) > maxTitle {
		return string(runes[:maxTitle])
	}
	return line
}
