package types

import (
	"strings"
	"time"
)

// RoleLevel is the seniority bucket extracted from a job description
type RoleLevel string

const (
	RoleLevelJunior  RoleLevel = "junior"
	RoleLevelMid     RoleLevel = "mid"
	RoleLevelSenior  RoleLevel = "senior"
	RoleLevelLead    RoleLevel = "lead"
	RoleLevelUnknown RoleLevel = "unknown"
)

// ParseRoleLevel maps free text onto a RoleLevel. Anything unrecognized is unknown.
func ParseRoleLevel(s string) RoleLevel {
	switch RoleLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RoleLevelJunior:
		return RoleLevelJunior
	case RoleLevelMid:
		return RoleLevelMid
	case RoleLevelSenior:
		return RoleLevelSenior
	case RoleLevelLead:
		return RoleLevelLead
	default:
		return RoleLevelUnknown
	}
}

// JDAnalysis is the structured view of a job description
type JDAnalysis struct {
	Skills                 []string  `json:"skills"`
	TechStack              []string  `json:"tech_stack"`
	RoleLevel              RoleLevel `json:"role_level"`
	ExperienceExpectations string    `json:"experience_expectations"`
}

// Process is a hiring process created by a recruiter
type Process struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ExtraContext string     `json:"extra_context"`
	NumMCQ       int        `json:"num_mcq"`
	NumCoding    int        `json:"num_coding"`
	NumTheory    int        `json:"num_theory"`
	PublicToken  string     `json:"public_token"`
	JDAnalysis   JDAnalysis `json:"jd_analysis"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PublicView is what a candidate holding the public token may see.
// It never carries the process id.
type PublicView struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Instructions string     `json:"instructions"`
	JDAnalysis   JDAnalysis `json:"jd_analysis"`
	NumMCQ       int        `json:"num_mcq"`
	NumCoding    int        `json:"num_coding"`
	NumTheory    int        `json:"num_theory"`
}

// CandidateState is a node of the candidate state machine
type CandidateState string

const (
	StateRegistered CandidateState = "registered"
	StateRejected   CandidateState = "rejected"
	StateTestIssued CandidateState = "test_issued"
	StateSubmitted  CandidateState = "submitted"
	StateEvaluated  CandidateState = "evaluated"
)

var transitions = map[CandidateState][]CandidateState{
	StateRegistered: {StateRejected, StateTestIssued},
	StateTestIssued: {StateSubmitted},
	StateSubmitted:  {StateEvaluated},
}

// CanTransition reports whether the state machine allows moving from one state to another.
func CanTransition(from, to CandidateState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Candidate is a person who registered against a process
type Candidate struct {
	ID                  string         `json:"candidate_id"`
	ProcessID           string         `json:"process_id"`
	Name                string         `json:"name"`
	Email               string         `json:"email"`
	ResumeText          string         `json:"resume_text"`
	ResumeMatchScore    float64        `json:"resume_match_score"`
	ResumeSummary       string         `json:"resume_summary"`
	SkillOverlap        []string       `json:"skill_overlap"`
	ExperienceRelevance string         `json:"experience_relevance"`
	State               CandidateState `json:"state"`
	QuestionSetID       string         `json:"question_set_id,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// NormalizeEmail returns the identity key used for duplicate-registration checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DedupeFold trims values, drops empty ones and removes case-insensitive
// duplicates keeping the first spelling.
func DedupeFold(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Section names a part of the assessment
type Section string

const (
	SectionMCQ    Section = "mcq"
	SectionCoding Section = "coding"
	SectionTheory Section = "theory"
)

// MCQItem is a single-answer multiple choice question
type MCQItem struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Skill        string   `json:"skill,omitempty"`
}

// CodingItem is a programming task
type CodingItem struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	Difficulty          string `json:"difficulty,omitempty"`
	ExpectedTimeMinutes int    `json:"expected_time_minutes,omitempty"`
	Skill               string `json:"skill,omitempty"`
}

// TheoryItem is an open-ended conceptual question
type TheoryItem struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Skill    string `json:"skill,omitempty"`
}

// QuestionSet is the test issued to one candidate
type QuestionSet struct {
	ID          string       `json:"id"`
	CandidateID string       `json:"candidate_id"`
	MCQ         []MCQItem    `json:"mcq"`
	Coding      []CodingItem `json:"coding"`
	Theory      []TheoryItem `json:"theory"`
}

// CandidateMCQItem is an MCQItem without the answer key
type CandidateMCQItem struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Skill    string   `json:"skill,omitempty"`
}

// CandidateQuestionSet is the candidate-facing view of a QuestionSet
type CandidateQuestionSet struct {
	MCQ    []CandidateMCQItem `json:"mcq"`
	Coding []CodingItem       `json:"coding"`
	Theory []TheoryItem       `json:"theory"`
}

// CandidateView strips answer keys from the question set.
func (qs *QuestionSet) CandidateView() *CandidateQuestionSet {
	view := &CandidateQuestionSet{
		MCQ:    make([]CandidateMCQItem, 0, len(qs.MCQ)),
		Coding: append([]CodingItem{}, qs.Coding...),
		Theory: append([]TheoryItem{}, qs.Theory...),
	}
	for _, item := range qs.MCQ {
		view.MCQ = append(view.MCQ, CandidateMCQItem{
			ID:       item.ID,
			Question: item.Question,
			Options:  append([]string{}, item.Options...),
			Skill:    item.Skill,
		})
	}
	return view
}

// Submission holds a candidate's answers
type Submission struct {
	CandidateID   string            `json:"candidate_id"`
	MCQAnswers    map[string]int    `json:"mcq_answers"`
	CodingAnswers map[string]string `json:"coding_answers"`
	TheoryAnswers map[string]string `json:"theory_answers"`
	SubmittedAt   time.Time         `json:"submitted_at"`
}

// Verdict is the hiring recommendation bucket
type Verdict string

const (
	VerdictStrongHire Verdict = "strong_hire"
	VerdictHire       Verdict = "hire"
	VerdictBorderline Verdict = "borderline"
	VerdictReject     Verdict = "reject"
)

// ItemScore is the judged score of a single coding or theory answer
type ItemScore struct {
	QuestionID string  `json:"question_id"`
	Section    Section `json:"section"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
}

// Scorecard is the terminal evaluation artifact of a candidate
type Scorecard struct {
	CandidateID      string      `json:"candidate_id"`
	ResumeMatchScore float64     `json:"resume_match_score"`
	MCQScore         float64     `json:"mcq_score"`
	CodingScore      float64     `json:"coding_score"`
	TheoryScore      float64     `json:"theory_score"`
	OverallScore     float64     `json:"overall_score"`
	Strengths        []string    `json:"strengths"`
	Weaknesses       []string    `json:"weaknesses"`
	Summary          string      `json:"summary"`
	FinalVerdict     Verdict     `json:"final_verdict"`
	ItemScores       []ItemScore `json:"item_scores"`
	EvaluatedAt      time.Time   `json:"evaluated_at"`
}

// Registration outcomes
const (
	RegistrationAccepted = "accepted"
	RegistrationRejected = "rejected"
)

// RegistrationResult is returned to a candidate after resume screening
type RegistrationResult struct {
	Status           string                `json:"status"`
	CandidateID      string                `json:"candidate_id,omitempty"`
	Questions        *CandidateQuestionSet `json:"questions,omitempty"`
	ResumeMatchScore float64               `json:"resume_match_score"`
	ResumeSummary    string                `json:"resume_summary"`
	Message          string                `json:"message"`
}

// AnalyticsOverview summarizes a process across its evaluated candidates
type AnalyticsOverview struct {
	ProcessID           string  `json:"process_id"`
	Title               string  `json:"title"`
	CreatedAt           string  `json:"created_at"`
	AverageOverallScore float64 `json:"average_overall_score"`
	AverageResumeMatch  float64 `json:"average_resume_match"`
	TotalCandidates     int     `json:"total_candidates"`
	CompletedCandidates int     `json:"completed_candidates"`
}

// CandidateAnalytics is one leaderboard row
type CandidateAnalytics struct {
	CandidateID      string         `json:"candidate_id"`
	Name             string         `json:"name"`
	Email            string         `json:"email"`
	State            CandidateState `json:"state"`
	ResumeMatchScore float64        `json:"resume_match_score"`
	MCQScore         float64        `json:"mcq_score"`
	CodingScore      float64        `json:"coding_score"`
	TheoryScore      float64        `json:"theory_score"`
	OverallScore     float64        `json:"overall_score"`
	FinalVerdict     Verdict        `json:"final_verdict"`
}

// ProcessAnalytics is the recruiter-facing analytics view of a process
type ProcessAnalytics struct {
	Overview   AnalyticsOverview    `json:"overview"`
	Candidates []CandidateAnalytics `json:"candidates"`
}
