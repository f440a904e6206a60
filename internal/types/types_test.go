package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRoleLevel(t *testing.T) {
	tests := map[string]RoleLevel{
		"junior":    RoleLevelJunior,
		" Senior ":  RoleLevelSenior,
		"MID":       RoleLevelMid,
		"lead":      RoleLevelLead,
		"principal": RoleLevelUnknown,
		"manager":   RoleLevelUnknown,
		"":          RoleLevelUnknown,
	}
	for input, want := range tests {
		if got := ParseRoleLevel(input); got != want {
			t.Errorf("ParseRoleLevel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCanTransitionIsForwardOnly(t *testing.T) {
	allowed := []struct{ from, to CandidateState }{
		{StateRegistered, StateRejected},
		{StateRegistered, StateTestIssued},
		{StateTestIssued, StateSubmitted},
		{StateSubmitted, StateEvaluated},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s to be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to CandidateState }{
		{StateRejected, StateTestIssued},
		{StateTestIssued, StateRegistered},
		{StateEvaluated, StateTestIssued},
		{StateSubmitted, StateTestIssued},
		{StateRegistered, StateEvaluated},
		{StateTestIssued, StateTestIssued},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s to be denied", tr.from, tr.to)
		}
	}
}

func TestCandidateViewHidesCorrectIndex(t *testing.T) {
	qs := &QuestionSet{
		ID: "qs-1",
		MCQ: []MCQItem{
			{ID: "mcq-1", Question: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1},
		},
		Coding: []CodingItem{{ID: "code-1", Title: "FizzBuzz", Description: "Print it"}},
	}

	view := qs.CandidateView()
	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "correct_index") {
		t.Errorf("candidate view leaks answer key: %s", data)
	}
	if len(view.MCQ) != 1 || view.MCQ[0].Options[1] != "4" {
		t.Errorf("unexpected view: %+v", view)
	}
	if view.Theory == nil {
		t.Error("theory should serialize as an empty list, not null")
	}

	view.MCQ[0].Options[0] = "changed"
	if qs.MCQ[0].Options[0] != "3" {
		t.Error("view must not alias the stored options")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Jane.Doe@Example.COM "); got != "jane.doe@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestDedupeFold(t *testing.T) {
	got := DedupeFold([]string{"Go", "GO", " docker", "Docker", "", "go "})
	if len(got) != 2 || got[0] != "Go" || got[1] != "docker" {
		t.Fatalf("DedupeFold() = %v, want [Go docker]", got)
	}
	if out := DedupeFold(nil); len(out) != 0 {
		t.Fatalf("DedupeFold(nil) = %v, want empty", out)
	}
}
