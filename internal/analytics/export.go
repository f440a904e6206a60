package analytics

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"skillpick/internal/errors"
	"skillpick/internal/types"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook
const (
	OverviewSheet   = "Overview"
	CandidatesSheet = "Candidates"
)

var candidateHeaders = []string{
	"Rank", "Name", "Email", "State", "Resume Match", "MCQ", "Coding", "Theory", "Overall", "Verdict",
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// verdictFill colors leaderboard rows by verdict
var verdictFill = map[types.Verdict]string{
	types.VerdictStrongHire: "C6EFCE",
	types.VerdictHire:       "E2EFDA",
	types.VerdictBorderline: "FFEB9C",
	types.VerdictReject:     "FFC7CE",
}

// ExportXLSX writes the analytics of a process as an XLSX workbook with an
// overview sheet and a leaderboard sorted by overall score.
func (a *Aggregator) ExportXLSX(ctx context.Context, processID string, w io.Writer) error {
	data, err := a.Analytics(ctx, processID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OverviewSheet); err != nil {
		return exportError(err)
	}
	if _, err := f.NewSheet(CandidatesSheet); err != nil {
		return exportError(err)
	}
	if err := writeOverview(f, data.Overview); err != nil {
		return exportError(err)
	}
	if err := writeCandidates(f, data.Candidates); err != nil {
		return exportError(err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return exportError(err)
	}
	a.logger.Info("Analytics exported", "process_id", processID, "candidates", len(data.Candidates))
	return nil
}

func writeOverview(f *excelize.File, o types.AnalyticsOverview) error {
	sheet := OverviewSheet
	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 50); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetCellValue(sheet, "A1", o.Title); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", "B1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return err
	}

	rows := [][2]any{
		{"Process ID", o.ProcessID},
		{"Created", o.CreatedAt},
		{"Exported", time.Now().UTC().Format(time.RFC3339)},
		{"Total Candidates", o.TotalCandidates},
		{"Completed Candidates", o.CompletedCandidates},
		{"Average Overall Score", round2(o.AverageOverallScore)},
		{"Average Resume Match", round2(o.AverageResumeMatch)},
	}
	for i, r := range rows {
		row := i + 3
		label := fmt.Sprintf("A%d", row)
		if err := f.SetCellValue(sheet, label, r[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, label, label, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r[1]); err != nil {
			return err
		}
	}
	return nil
}

func writeCandidates(f *excelize.File, candidates []types.CandidateAnalytics) error {
	sheet := CandidatesSheet

	ranked := append([]types.CandidateAnalytics(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallScore > ranked[j].OverallScore
	})

	widths := []float64{8, 25, 30, 14, 14, 10, 10, 10, 10, 14}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}
	plainStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder})
	if err != nil {
		return err
	}
	rowStyles := make(map[types.Verdict]int, len(verdictFill))
	for verdict, color := range verdictFill {
		style, err := f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: thinBorder,
		})
		if err != nil {
			return err
		}
		rowStyles[verdict] = style
	}

	for i, header := range candidateHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(candidateHeaders))
	if err != nil {
		return err
	}
	for i, c := range ranked {
		row := i + 2
		values := []any{
			i + 1, c.Name, c.Email, string(c.State),
			round2(c.ResumeMatchScore), round2(c.MCQScore), round2(c.CodingScore),
			round2(c.TheoryScore), round2(c.OverallScore), string(c.FinalVerdict),
		}
		start := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}

		style, ok := rowStyles[c.FinalVerdict]
		if !ok {
			style = plainStyle
		}
		if err := f.SetCellStyle(sheet, start, fmt.Sprintf("%s%d", lastCol, row), style); err != nil {
			return err
		}
	}

	if len(ranked) > 0 {
		if err := f.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, len(ranked)+1), []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func exportError(err error) error {
	return errors.NewIOError(errors.ErrCodeExportFailed, "Failed to export analytics", err)
}
