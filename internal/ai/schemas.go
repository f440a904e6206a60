package ai

import (
	"skillpick/internal/config"

	"google.golang.org/genai"
)

func stringArray() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

func perQuestionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"per_question": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question_id": {Type: genai.TypeString},
						"score":       {Type: genai.TypeNumber},
						"feedback":    {Type: genai.TypeString},
					},
					Required: []string{"question_id", "score", "feedback"},
				},
			},
		},
		Required: []string{"per_question"},
	}
}

// SchemaFor returns the response schema of an operation, or nil if unknown
func SchemaFor(operation string) *genai.Schema {
	switch operation {
	case config.OperationJD:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"skills":     stringArray(),
				"tech_stack": stringArray(),
				"role_level": {
					Type: genai.TypeString,
					Enum: []string{"junior", "mid", "senior", "lead", "unknown"},
				},
				"experience_expectations": {Type: genai.TypeString},
			},
			Required: []string{"skills", "tech_stack", "role_level", "experience_expectations"},
		}
	case config.OperationResume:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"match_score":          {Type: genai.TypeNumber},
				"summary":              {Type: genai.TypeString},
				"skill_overlap":        stringArray(),
				"experience_relevance": {Type: genai.TypeString},
			},
			Required: []string{"match_score", "summary", "skill_overlap", "experience_relevance"},
		}
	case config.OperationQuestions:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"mcq": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"id":            {Type: genai.TypeString},
							"question":      {Type: genai.TypeString},
							"options":       stringArray(),
							"correct_index": {Type: genai.TypeInteger},
							"skill":         {Type: genai.TypeString},
						},
						Required: []string{"id", "question", "options", "correct_index"},
					},
				},
				"coding": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"id":                    {Type: genai.TypeString},
							"title":                 {Type: genai.TypeString},
							"description":           {Type: genai.TypeString},
							"difficulty":            {Type: genai.TypeString, Enum: []string{"easy", "medium", "hard"}},
							"expected_time_minutes": {Type: genai.TypeInteger},
							"skill":                 {Type: genai.TypeString},
						},
						Required: []string{"id", "title", "description"},
					},
				},
				"theory": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"id":       {Type: genai.TypeString},
							"question": {Type: genai.TypeString},
							"skill":    {Type: genai.TypeString},
						},
						Required: []string{"id", "question"},
					},
				},
			},
			Required: []string{"mcq", "coding", "theory"},
		}
	case config.OperationCoding, config.OperationTheory:
		return perQuestionSchema()
	case config.OperationSummary:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"strengths":  stringArray(),
				"weaknesses": stringArray(),
				"summary":    {Type: genai.TypeString},
			},
			Required: []string{"strengths", "weaknesses", "summary"},
		}
	default:
		return nil
	}
}
