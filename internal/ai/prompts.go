package ai

import "skillpick/internal/config"

// PromptTemplates is a system/user template pair. Templates use text/template
// syntax; each operation documents the fields it is rendered with.
type PromptTemplates struct {
	System string
	User   string
}

// DefaultPrompts holds the built-in templates keyed by operation
var DefaultPrompts = map[string]PromptTemplates{
	// Fields: Title, Description, ExtraContext
	config.OperationJD: {
		System: `You analyze job descriptions for a technical hiring pipeline.
You extract only what the text supports and you never invent requirements.`,
		User: `Read the job description below and describe the role as a JSON object with these fields:

- "skills": the 5 to 20 core skills the role needs (strings, no duplicates)
- "tech_stack": the concrete technologies, languages and platforms mentioned (strings, may be empty)
- "role_level": one of "junior", "mid", "senior", "lead" or "unknown"
- "experience_expectations": one short phrase describing the expected experience

Return only the JSON object.

Title: {{.Title}}

Job description:
-----
{{.Description}}
-----
{{if .ExtraContext}}
Additional context from the recruiter:
-----
{{.ExtraContext}}
-----
{{end}}`,
	},

	// Fields: Title, Description, JDAnalysis, ResumeText
	config.OperationResume: {
		System: `You screen resumes against a job description.
You are strict but fair. You judge only what the resume actually states.`,
		User: `Compare the resume with the job below and answer with a JSON object:

- "match_score": number from 0 to 100, how well the resume fits the role
- "summary": 2 to 4 sentences a recruiter can read quickly
- "skill_overlap": skills from the job analysis that the resume demonstrates
- "experience_relevance": one short phrase about how relevant the experience is

Return only the JSON object.

Job title: {{.Title}}

Job description:
-----
{{.Description}}
-----

Job analysis (JSON):
{{.JDAnalysis}}

Resume:
-----
{{.ResumeText}}
-----`,
	},

	// Fields: Title, Description, JDAnalysis, ExtraContext, NumMCQ, NumCoding,
	// NumTheory, UsedIDs
	config.OperationQuestions: {
		System: `You write technical assessments for job candidates.
Every question must be answerable, unambiguous and aligned with the role.`,
		User: `Write assessment questions for the role below as a JSON object with three arrays.

"mcq": exactly {{.NumMCQ}} items, each {"id", "question", "options", "correct_index", "skill"}.
  Options are at least 2 distinct strings. correct_index is the 0-based index of the single correct option.
"coding": exactly {{.NumCoding}} items, each {"id", "title", "description", "difficulty", "expected_time_minutes", "skill"}.
  difficulty is "easy", "medium" or "hard".
"theory": exactly {{.NumTheory}} items, each {"id", "question", "skill"}.

Use an empty array for a section that needs 0 items.
Ids must be unique across all sections{{if .UsedIDs}} and must not reuse any of: {{.UsedIDs}}{{end}}.
Return only the JSON object.

Job title: {{.Title}}

Job description:
-----
{{.Description}}
-----

Job analysis (JSON):
{{.JDAnalysis}}
{{if .ExtraContext}}
Notes on question style:
-----
{{.ExtraContext}}
-----
{{end}}`,
	},

	// Fields: Questions, Answers (both JSON)
	config.OperationCoding: {
		System: `You review code written by job candidates.
You grade correctness first, then readability and efficiency.`,
		User: `Grade each answer to the coding tasks below and respond with a JSON object:

{"per_question": [{"question_id": "...", "score": 0-100, "feedback": "one or two sentences"}]}

Include exactly one entry for every question id present in the answers, and no others.

Coding tasks (JSON):
{{.Questions}}

Candidate answers (JSON, question id to code):
{{.Answers}}`,
	},

	// Fields: Questions, Answers (both JSON)
	config.OperationTheory: {
		System: `You grade written answers to technical theory questions.
You reward accuracy and depth, not length.`,
		User: `Grade each answer below and respond with a JSON object:

{"per_question": [{"question_id": "...", "score": 0-100, "feedback": "one or two sentences"}]}

Include exactly one entry for every question id present in the answers, and no others.

Questions (JSON):
{{.Questions}}

Candidate answers (JSON, question id to answer):
{{.Answers}}`,
	},

	// Fields: JDAnalysis, Report (both JSON)
	config.OperationSummary: {
		System: `You write the final hiring summary for a recruiter.
You base every statement on the scores and feedback you are given.`,
		User: `Summarize the candidate's assessment and respond with a JSON object:

- "strengths": short bullet points
- "weaknesses": short bullet points
- "summary": 3 to 6 sentences

Return only the JSON object.

Job analysis (JSON):
{{.JDAnalysis}}

Assessment report (JSON):
{{.Report}}`,
	},
}
