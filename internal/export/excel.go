// Package export writes ranking results to files for people who do not read
// logs: an Excel workbook and a JSON document.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/skill-ranker/internal/matching"
)

const (
	rankingSheet = "Ranking"
	skillsSheet  = "Skills"
)

var borders = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// Workbook writes results to an .xlsx file with a ranking sheet and a
// per-skill detail sheet. The extension is added when missing. It returns the
// path actually written.
func Workbook(results []matching.MatchResult, jobTitle, outputPath string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rankingSheet); err != nil {
		return "", fmt.Errorf("renaming default sheet: %w", err)
	}
	if _, err := f.NewSheet(skillsSheet); err != nil {
		return "", fmt.Errorf("creating skills sheet: %w", err)
	}

	if err := writeRankingSheet(f, results, jobTitle); err != nil {
		return "", fmt.Errorf("writing ranking sheet: %w", err)
	}
	if err := writeSkillsSheet(f, results); err != nil {
		return "", fmt.Errorf("writing skills sheet: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("saving workbook: %w", err)
	}
	return outputPath, nil
}

type styles struct {
	title, header, strong, good, weak int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	if s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	}); err != nil {
		return s, err
	}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    borders,
	}); err != nil {
		return s, err
	}

	fills := []struct {
		dst   *int
		color string
	}{
		{&s.strong, "C6EFCE"},
		{&s.good, "FFEB9C"},
		{&s.weak, "FFC7CE"},
	}
	for _, fill := range fills {
		if *fill.dst, err = f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{fill.color}, Pattern: 1},
			Border: borders,
		}); err != nil {
			return s, err
		}
	}

	return s, nil
}

func (s styles) forScore(score float64) int {
	switch {
	case score >= 0.75:
		return s.strong
	case score >= 0.5:
		return s.good
	default:
		return s.weak
	}
}

func writeRankingSheet(f *excelize.File, results []matching.MatchResult, jobTitle string) error {
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	title := "Ranking"
	if jobTitle = strings.TrimSpace(jobTitle); jobTitle != "" {
		title = "Ranking: " + jobTitle
	}
	if err := f.SetCellValue(rankingSheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(rankingSheet, "A1", "A1", st.title); err != nil {
		return err
	}

	headers := []string{"Rank", "Candidate", "Score", "Skills Score", "Overall Similarity", "Matching", "Missing", "Extra"}
	widths := []float64{8, 28, 10, 14, 18, 40, 40, 40}
	const headerRow = 3

	for i, header := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(rankingSheet, col, col, widths[i]); err != nil {
			return err
		}
		if err := setCell(f, rankingSheet, i+1, headerRow, header, st.header); err != nil {
			return err
		}
	}

	for i, r := range results {
		row := headerRow + 1 + i
		values := []any{
			i + 1,
			r.CandidateName,
			r.Score,
			r.ScoreBreakdown.SkillsScore,
			r.ScoreBreakdown.OverallSimilarity,
			strings.Join(r.MatchingSkills, ", "),
			strings.Join(r.MissingSkills, ", "),
			strings.Join(r.ExtraSkills, ", "),
		}
		style := st.forScore(r.Score)
		for col, v := range values {
			if err := setCell(f, rankingSheet, col+1, row, v, style); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeSkillsSheet(f *excelize.File, results []matching.MatchResult) error {
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	headers := []string{"Candidate", "Skill", "Status"}
	for i, header := range headers {
		if err := setCell(f, skillsSheet, i+1, 1, header, st.header); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(skillsSheet, "A", "C", 24); err != nil {
		return err
	}

	row := 2
	for _, r := range results {
		groups := []struct {
			status string
			skills []string
			style  int
		}{
			{"matching", r.MatchingSkills, st.strong},
			{"missing", r.MissingSkills, st.weak},
			{"extra", r.ExtraSkills, st.good},
		}
		for _, g := range groups {
			for _, skill := range g.skills {
				for col, v := range []string{r.CandidateName, skill, g.status} {
					if err := setCell(f, skillsSheet, col+1, row, v, g.style); err != nil {
						return err
					}
				}
				row++
			}
		}
	}

	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, style)
}
