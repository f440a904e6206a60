package store

import (
	"encoding/json"
	"time"

	"skillpick/internal/types"

	"gorm.io/datatypes"
)

type processModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Title        string `gorm:"size:255;not null"`
	Description  string `gorm:"type:text"`
	ExtraContext string `gorm:"type:text"`
	NumMCQ       int
	NumCoding    int
	NumTheory    int
	PublicToken  string `gorm:"size:64;uniqueIndex;not null"`
	JDAnalysis   datatypes.JSON
	CreatedAt    time.Time
}

func (processModel) TableName() string { return "processes" }

type candidateModel struct {
	ID                  string `gorm:"primaryKey;size:36"`
	ProcessID           string `gorm:"size:36;not null;uniqueIndex:idx_candidate_process_email;index"`
	Name                string `gorm:"size:255"`
	Email               string `gorm:"size:320;not null;uniqueIndex:idx_candidate_process_email"`
	ResumeText          string `gorm:"type:text"`
	ResumeMatchScore    float64
	ResumeSummary       string `gorm:"type:text"`
	SkillOverlap        datatypes.JSON
	ExperienceRelevance string `gorm:"type:text"`
	State               string `gorm:"size:32;not null;index"`
	QuestionSetID       string `gorm:"size:36"`
	CreatedAt           time.Time
}

func (candidateModel) TableName() string { return "candidates" }

type questionSetModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	CandidateID string `gorm:"size:36;not null;uniqueIndex"`
	MCQ         datatypes.JSON
	Coding      datatypes.JSON
	Theory      datatypes.JSON
	CreatedAt   time.Time
}

func (questionSetModel) TableName() string { return "question_sets" }

type submissionModel struct {
	CandidateID   string `gorm:"primaryKey;size:36"`
	MCQAnswers    datatypes.JSON
	CodingAnswers datatypes.JSON
	TheoryAnswers datatypes.JSON
	SubmittedAt   time.Time
}

func (submissionModel) TableName() string { return "submissions" }

type scorecardModel struct {
	CandidateID      string `gorm:"primaryKey;size:36"`
	ProcessID        string `gorm:"size:36;not null;index"`
	ResumeMatchScore float64
	MCQScore         float64
	CodingScore      float64
	TheoryScore      float64
	OverallScore     float64
	Strengths        datatypes.JSON
	Weaknesses       datatypes.JSON
	Summary          string `gorm:"type:text"`
	FinalVerdict     string `gorm:"size:32"`
	ItemScores       datatypes.JSON
	EvaluatedAt      time.Time
}

func (scorecardModel) TableName() string { return "scorecards" }

// allModels is the AutoMigrate set
var allModels = []any{
	&processModel{},
	&candidateModel{},
	&questionSetModel{},
	&submissionModel{},
	&scorecardModel{},
}

func toJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func fromJSON(raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func newProcessModel(p *types.Process) (*processModel, error) {
	analysis, err := toJSON(p.JDAnalysis)
	if err != nil {
		return nil, err
	}
	return &processModel{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		ExtraContext: p.ExtraContext,
		NumMCQ:       p.NumMCQ,
		NumCoding:    p.NumCoding,
		NumTheory:    p.NumTheory,
		PublicToken:  p.PublicToken,
		JDAnalysis:   analysis,
		CreatedAt:    p.CreatedAt,
	}, nil
}

func (m *processModel) toDomain() (*types.Process, error) {
	p := &types.Process{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		ExtraContext: m.ExtraContext,
		NumMCQ:       m.NumMCQ,
		NumCoding:    m.NumCoding,
		NumTheory:    m.NumTheory,
		PublicToken:  m.PublicToken,
		CreatedAt:    m.CreatedAt,
	}
	if err := fromJSON(m.JDAnalysis, &p.JDAnalysis); err != nil {
		return nil, err
	}
	return p, nil
}

func newCandidateModel(c *types.Candidate) (*candidateModel, error) {
	overlap, err := toJSON(nonNil(c.SkillOverlap))
	if err != nil {
		return nil, err
	}
	return &candidateModel{
		ID:                  c.ID,
		ProcessID:           c.ProcessID,
		Name:                c.Name,
		Email:               types.NormalizeEmail(c.Email),
		ResumeText:          c.ResumeText,
		ResumeMatchScore:    c.ResumeMatchScore,
		ResumeSummary:       c.ResumeSummary,
		SkillOverlap:        overlap,
		ExperienceRelevance: c.ExperienceRelevance,
		State:               string(c.State),
		QuestionSetID:       c.QuestionSetID,
		CreatedAt:           c.CreatedAt,
	}, nil
}

func (m *candidateModel) toDomain() (*types.Candidate, error) {
	c := &types.Candidate{
		ID:                  m.ID,
		ProcessID:           m.ProcessID,
		Name:                m.Name,
		Email:               m.Email,
		ResumeText:          m.ResumeText,
		ResumeMatchScore:    m.ResumeMatchScore,
		ResumeSummary:       m.ResumeSummary,
		ExperienceRelevance: m.ExperienceRelevance,
		State:               types.CandidateState(m.State),
		QuestionSetID:       m.QuestionSetID,
		CreatedAt:           m.CreatedAt,
	}
	if err := fromJSON(m.SkillOverlap, &c.SkillOverlap); err != nil {
		return nil, err
	}
	return c, nil
}

func newQuestionSetModel(candidateID string, qs *types.QuestionSet) (*questionSetModel, error) {
	mcq, err := toJSON(qs.MCQ)
	if err != nil {
		return nil, err
	}
	coding, err := toJSON(qs.Coding)
	if err != nil {
		return nil, err
	}
	theory, err := toJSON(qs.Theory)
	if err != nil {
		return nil, err
	}
	return &questionSetModel{
		ID:          qs.ID,
		CandidateID: candidateID,
		MCQ:         mcq,
		Coding:      coding,
		Theory:      theory,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (m *questionSetModel) toDomain() (*types.QuestionSet, error) {
	qs := &types.QuestionSet{ID: m.ID, CandidateID: m.CandidateID}
	if err := fromJSON(m.MCQ, &qs.MCQ); err != nil {
		return nil, err
	}
	if err := fromJSON(m.Coding, &qs.Coding); err != nil {
		return nil, err
	}
	if err := fromJSON(m.Theory, &qs.Theory); err != nil {
		return nil, err
	}
	return qs, nil
}

func newSubmissionModel(candidateID string, s *types.Submission) (*submissionModel, error) {
	mcq, err := toJSON(s.MCQAnswers)
	if err != nil {
		return nil, err
	}
	coding, err := toJSON(s.CodingAnswers)
	if err != nil {
		return nil, err
	}
	theory, err := toJSON(s.TheoryAnswers)
	if err != nil {
		return nil, err
	}
	return &submissionModel{
		CandidateID:   candidateID,
		MCQAnswers:    mcq,
		CodingAnswers: coding,
		TheoryAnswers: theory,
		SubmittedAt:   s.SubmittedAt,
	}, nil
}

func (m *submissionModel) toDomain() (*types.Submission, error) {
	s := &types.Submission{CandidateID: m.CandidateID, SubmittedAt: m.SubmittedAt}
	if err := fromJSON(m.MCQAnswers, &s.MCQAnswers); err != nil {
		return nil, err
	}
	if err := fromJSON(m.CodingAnswers, &s.CodingAnswers); err != nil {
		return nil, err
	}
	if err := fromJSON(m.TheoryAnswers, &s.TheoryAnswers); err != nil {
		return nil, err
	}
	return s, nil
}

func newScorecardModel(candidateID, processID string, sc *types.Scorecard) (*scorecardModel, error) {
	strengths, err := toJSON(nonNil(sc.Strengths))
	if err != nil {
		return nil, err
	}
	weaknesses, err := toJSON(nonNil(sc.Weaknesses))
	if err != nil {
		return nil, err
	}
	items, err := toJSON(sc.ItemScores)
	if err != nil {
		return nil, err
	}
	return &scorecardModel{
		CandidateID:      candidateID,
		ProcessID:        processID,
		ResumeMatchScore: sc.ResumeMatchScore,
		MCQScore:         sc.MCQScore,
		CodingScore:      sc.CodingScore,
		TheoryScore:      sc.TheoryScore,
		OverallScore:     sc.OverallScore,
		Strengths:        strengths,
		Weaknesses:       weaknesses,
		Summary:          sc.Summary,
		FinalVerdict:     string(sc.FinalVerdict),
		ItemScores:       items,
		EvaluatedAt:      sc.EvaluatedAt,
	}, nil
}

func (m *scorecardModel) toDomain() (*types.Scorecard, error) {
	sc := &types.Scorecard{
		CandidateID:      m.CandidateID,
		ResumeMatchScore: m.ResumeMatchScore,
		MCQScore:         m.MCQScore,
		CodingScore:      m.CodingScore,
		TheoryScore:      m.TheoryScore,
		OverallScore:     m.OverallScore,
		Summary:          m.Summary,
		FinalVerdict:     types.Verdict(m.FinalVerdict),
		EvaluatedAt:      m.EvaluatedAt,
	}
	if err := fromJSON(m.Strengths, &sc.Strengths); err != nil {
		return nil, err
	}
	if err := fromJSON(m.Weaknesses, &sc.Weaknesses); err != nil {
		return nil, err
	}
	if err := fromJSON(m.ItemScores, &sc.ItemScores); err != nil {
		return nil, err
	}
	return sc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
