package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"skillpick/internal/screening"
	"skillpick/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ProcessAnalytics", &AnalyticsTextFormatter{})
	registry.RegisterFormatter("markdown", "ProcessAnalytics", &AnalyticsMarkdownFormatter{})
	registry.RegisterFormatter("text", "Scorecard", &ScorecardTextFormatter{})
	registry.RegisterFormatter("markdown", "Scorecard", &ScorecardMarkdownFormatter{})
	registry.RegisterFormatter("text", "ScreeningResult", &ScreeningTextFormatter{})
	registry.RegisterFormatter("markdown", "ScreeningResult", &ScreeningTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats in a stable order
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *types.ProcessAnalytics:
		return "ProcessAnalytics"
	case *types.Scorecard:
		return "Scorecard"
	case *screening.Result:
		return "ScreeningResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// AnalyticsTextFormatter renders process analytics as plain text
type AnalyticsTextFormatter struct{}

func (atf *AnalyticsTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.ProcessAnalytics)
	if !ok {
		return "", fmt.Errorf("expected *ProcessAnalytics, got %T", data)
	}
	o := result.Overview

	var output strings.Builder
	output.WriteString("=== PROCESS OVERVIEW ===\n")
	fmt.Fprintf(&output, "Title: %s\n", o.Title)
	fmt.Fprintf(&output, "Process ID: %s\n", o.ProcessID)
	fmt.Fprintf(&output, "Created: %s\n", o.CreatedAt)
	fmt.Fprintf(&output, "Candidates: %d (%d completed)\n", o.TotalCandidates, o.CompletedCandidates)
	fmt.Fprintf(&output, "Average overall score: %.2f\n", o.AverageOverallScore)
	fmt.Fprintf(&output, "Average resume match: %.2f\n\n", o.AverageResumeMatch)

	output.WriteString("=== CANDIDATES ===\n")
	if len(result.Candidates) == 0 {
		output.WriteString("No candidates yet.\n")
	}
	for _, c := range result.Candidates {
		fmt.Fprintf(&output, "- %s <%s> [%s]\n", c.Name, c.Email, c.State)
		fmt.Fprintf(&output, "  Resume %.1f | MCQ %.1f | Coding %.1f | Theory %.1f | Overall %.1f",
			c.ResumeMatchScore, c.MCQScore, c.CodingScore, c.TheoryScore, c.OverallScore)
		if c.FinalVerdict != "" {
			fmt.Fprintf(&output, " | %s", c.FinalVerdict)
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (atf *AnalyticsTextFormatter) SupportedType() string {
	return "ProcessAnalytics"
}

// AnalyticsMarkdownFormatter renders process analytics as a markdown report
type AnalyticsMarkdownFormatter struct{}

func (amf *AnalyticsMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.ProcessAnalytics)
	if !ok {
		return "", fmt.Errorf("expected *ProcessAnalytics, got %T", data)
	}
	o := result.Overview

	var output strings.Builder
	fmt.Fprintf(&output, "# %s\n\n", o.Title)
	output.WriteString("## Overview\n\n")
	output.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&output, "| Process ID | `%s` |\n", o.ProcessID)
	fmt.Fprintf(&output, "| Created | %s |\n", o.CreatedAt)
	fmt.Fprintf(&output, "| Total candidates | %d |\n", o.TotalCandidates)
	fmt.Fprintf(&output, "| Completed | %d |\n", o.CompletedCandidates)
	fmt.Fprintf(&output, "| Average overall score | %.2f |\n", o.AverageOverallScore)
	fmt.Fprintf(&output, "| Average resume match | %.2f |\n\n", o.AverageResumeMatch)

	output.WriteString("## Candidates\n\n")
	if len(result.Candidates) == 0 {
		output.WriteString("_No candidates yet._\n")
		return output.String(), nil
	}
	output.WriteString("| Name | Email | State | Resume | MCQ | Coding | Theory | Overall | Verdict |\n")
	output.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, c := range result.Candidates {
		fmt.Fprintf(&output, "| %s | %s | %s | %.1f | %.1f | %.1f | %.1f | %.1f | %s |\n",
			escapeCell(c.Name), escapeCell(c.Email), c.State,
			c.ResumeMatchScore, c.MCQScore, c.CodingScore, c.TheoryScore, c.OverallScore, c.FinalVerdict)
	}

	return output.String(), nil
}

func (amf *AnalyticsMarkdownFormatter) SupportedType() string {
	return "ProcessAnalytics"
}

// ScorecardTextFormatter renders a candidate scorecard as plain text
type ScorecardTextFormatter struct{}

func (stf *ScorecardTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.Scorecard)
	if !ok {
		return "", fmt.Errorf("expected *Scorecard, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== SCORECARD ===\n")
	fmt.Fprintf(&output, "Candidate: %s\n", result.CandidateID)
	fmt.Fprintf(&output, "Verdict: %s\n", result.FinalVerdict)
	fmt.Fprintf(&output, "Overall: %.2f/100\n\n", result.OverallScore)

	output.WriteString("=== SECTION SCORES ===\n")
	fmt.Fprintf(&output, "Resume match: %.2f\n", result.ResumeMatchScore)
	fmt.Fprintf(&output, "MCQ: %.2f\n", result.MCQScore)
	fmt.Fprintf(&output, "Coding: %.2f\n", result.CodingScore)
	fmt.Fprintf(&output, "Theory: %.2f\n\n", result.TheoryScore)

	output.WriteString("=== SUMMARY ===\n")
	output.WriteString(result.Summary)
	output.WriteString("\n\n")
	writeList(&output, "Strengths:\n", "- ", result.Strengths)
	writeList(&output, "Weaknesses:\n", "- ", result.Weaknesses)

	if len(result.ItemScores) > 0 {
		output.WriteString("=== ITEM FEEDBACK ===\n")
		for _, item := range result.ItemScores {
			fmt.Fprintf(&output, "[%s] %s: %.1f", item.Section, item.QuestionID, item.Score)
			if item.Feedback != "" {
				fmt.Fprintf(&output, " - %s", item.Feedback)
			}
			output.WriteString("\n")
		}
	}

	return output.String(), nil
}

func (stf *ScorecardTextFormatter) SupportedType() string {
	return "Scorecard"
}

// ScorecardMarkdownFormatter renders a candidate scorecard as markdown
type ScorecardMarkdownFormatter struct{}

func (smf *ScorecardMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.Scorecard)
	if !ok {
		return "", fmt.Errorf("expected *Scorecard, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Candidate Scorecard\n\n")
	fmt.Fprintf(&output, "**Verdict:** %s  \n", result.FinalVerdict)
	fmt.Fprintf(&output, "**Overall:** %.2f/100\n\n", result.OverallScore)

	output.WriteString("| Section | Score |\n|---|---|\n")
	fmt.Fprintf(&output, "| Resume match | %.2f |\n", result.ResumeMatchScore)
	fmt.Fprintf(&output, "| MCQ | %.2f |\n", result.MCQScore)
	fmt.Fprintf(&output, "| Coding | %.2f |\n", result.CodingScore)
	fmt.Fprintf(&output, "| Theory | %.2f |\n\n", result.TheoryScore)

	output.WriteString("## Summary\n\n")
	output.WriteString(result.Summary)
	output.WriteString("\n\n")
	writeList(&output, "## Strengths\n\n", "- ", result.Strengths)
	writeList(&output, "## Weaknesses\n\n", "- ", result.Weaknesses)

	return output.String(), nil
}

func (smf *ScorecardMarkdownFormatter) SupportedType() string {
	return "Scorecard"
}

// ScreeningTextFormatter renders a resume screening outcome. Its output is
// valid markdown as well.
type ScreeningTextFormatter struct{}

func (sf *ScreeningTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*screening.Result)
	if !ok {
		return "", fmt.Errorf("expected *screening.Result, got %T", data)
	}

	decision := "REJECTED"
	if result.Accepted {
		decision = "ACCEPTED"
	}

	var output strings.Builder
	fmt.Fprintf(&output, "Decision: %s\n", decision)
	fmt.Fprintf(&output, "Match score: %.1f/100\n\n", result.MatchScore)
	output.WriteString(result.Summary)
	output.WriteString("\n\n")
	if result.ExperienceRelevance != "" {
		fmt.Fprintf(&output, "Experience relevance: %s\n\n", result.ExperienceRelevance)
	}
	writeList(&output, "Skill overlap:\n", "- ", result.SkillOverlap)

	return output.String(), nil
}

func (sf *ScreeningTextFormatter) SupportedType() string {
	return "ScreeningResult"
}

func writeList(output *strings.Builder, heading, bullet string, items []string) {
	if len(items) == 0 {
		return
	}
	output.WriteString(heading)
	for _, item := range items {
		output.WriteString(bullet)
		output.WriteString(item)
		output.WriteString("\n")
	}
	output.WriteString("\n")
}

// escapeCell keeps pipes inside a markdown table cell
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
