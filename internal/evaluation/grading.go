package evaluation

import (
	"context"
	"encoding/json"
	"strings"

	"skillpick/internal/ai"
	"skillpick/internal/types"
)

// DefaultVacuousCredit is the score of a section that has no items
const DefaultVacuousCredit = 100.0

const noAnswerFeedback = "No answer submitted."

// ScoreMCQ returns the percentage of items answered with their correct
// index. Unanswered and out-of-range answers are incorrect. A section
// without items scores vacuous.
func ScoreMCQ(items []types.MCQItem, answers map[string]int, vacuous float64) float64 {
	if len(items) == 0 {
		return vacuous
	}
	correct := 0
	for _, item := range items {
		if got, ok := answers[item.ID]; ok && got == item.CorrectIndex {
			correct++
		}
	}
	return 100 * float64(correct) / float64(len(items))
}

// sectionItem is one gradable question of a free-text section
type sectionItem struct {
	ID       string
	Question any
}

type gradePromptData struct {
	Questions string
	Answers   string
}

type gradedAnswer struct {
	QuestionID string   `json:"question_id"`
	Score      *float64 `json:"score"`
	Feedback   string   `json:"feedback"`
}

type gradePayload struct {
	PerQuestion []gradedAnswer `json:"per_question"`
}

// sectionResult is the graded outcome of one section
type sectionResult struct {
	Score float64
	Items []types.ItemScore
	Empty bool
}

// gradeSection asks the oracle to grade the answered items of a section in a
// single call. Blank and missing answers score 0 without reaching the
// oracle. The section score is the mean over all of its items.
func gradeSection(ctx context.Context, client *ai.Client, operation string, section types.Section, items []sectionItem, answers map[string]string, vacuous float64) (sectionResult, error) {
	if len(items) == 0 {
		return sectionResult{Score: vacuous, Items: []types.ItemScore{}, Empty: true}, nil
	}

	var questions []any
	answered := make(map[string]string)
	for _, item := range items {
		if text := strings.TrimSpace(answers[item.ID]); text != "" {
			questions = append(questions, item.Question)
			answered[item.ID] = text
		}
	}

	graded := map[string]gradedAnswer{}
	if len(answered) > 0 {
		questionsJSON, err := json.Marshal(questions)
		if err != nil {
			return sectionResult{}, err
		}
		answersJSON, err := json.Marshal(answered)
		if err != nil {
			return sectionResult{}, err
		}

		out, err := ai.Ask(ctx, client, operation,
			gradePromptData{Questions: string(questionsJSON), Answers: string(answersJSON)},
			coverageValidator(answered))
		if err != nil {
			return sectionResult{}, err
		}
		for _, g := range out.PerQuestion {
			graded[g.QuestionID] = g
		}
	}

	result := sectionResult{Items: make([]types.ItemScore, 0, len(items))}
	var total float64
	for _, item := range items {
		score := types.ItemScore{QuestionID: item.ID, Section: section, Feedback: noAnswerFeedback}
		if g, ok := graded[item.ID]; ok {
			score.Score = *g.Score
			score.Feedback = g.Feedback
		}
		total += score.Score
		result.Items = append(result.Items, score)
	}
	result.Score = total / float64(len(items))
	return result, nil
}

// coverageValidator requires exactly one score in [0,100] for every answered id
func coverageValidator(answered map[string]string) func(*gradePayload) error {
	return func(p *gradePayload) error {
		seen := make(map[string]struct{}, len(p.PerQuestion))
		for i := range p.PerQuestion {
			g := &p.PerQuestion[i]
			g.QuestionID = strings.TrimSpace(g.QuestionID)
			if _, ok := answered[g.QuestionID]; !ok {
				return ai.Invalid("question_id %q was not among the answered questions", g.QuestionID)
			}
			if _, dup := seen[g.QuestionID]; dup {
				return ai.Invalid("question_id %q was graded more than once", g.QuestionID)
			}
			seen[g.QuestionID] = struct{}{}
			if g.Score == nil {
				return ai.Invalid("score for %q is missing", g.QuestionID)
			}
			if *g.Score < 0 || *g.Score > 100 {
				return ai.Invalid("score for %q must be between 0 and 100, got %g", g.QuestionID, *g.Score)
			}
			g.Feedback = strings.TrimSpace(g.Feedback)
		}
		for id := range answered {
			if _, ok := seen[id]; !ok {
				return ai.Invalid("question_id %q was not graded", id)
			}
		}
		return nil
	}
}

func codingItems(items []types.CodingItem) []sectionItem {
	out := make([]sectionItem, len(items))
	for i, item := range items {
		out[i] = sectionItem{ID: item.ID, Question: item}
	}
	return out
}

func theoryItems(items []types.TheoryItem) []sectionItem {
	out := make([]sectionItem, len(items))
	for i, item := range items {
		out[i] = sectionItem{ID: item.ID, Question: item}
	}
	return out
}
