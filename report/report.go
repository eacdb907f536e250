// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package report renders tallies as downloadable spreadsheets.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/danielhkuo/campus-ballot/models"
)

// Sheet names
const (
	SummarySheet = "Summary"
	ResultsSheet = "Results"
)

// ResultsHeader is the first row of the results sheet.
var ResultsHeader = []string{"Position", "Rank", "Candidate", "Votes", "Share (%)", "Winner"}

// ContentType is the MIME type of the workbook bytes.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename suggests a download name for the scope's report.
func Filename(scope models.Scope) string {
	name := "primary"
	if !scope.IsPrimary() {
		name = "club-" + scope.ClubID()
	}
	return "results-" + name + ".xlsx"
}

// TallyWorkbook builds an XLSX file with a summary sheet and one results
// row per candidate, positions in alphabetical order.
func TallyWorkbook(cfg models.ElectionConfig, t models.Tally) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	index, err := f.NewSheet(ResultsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	summary := [][]any{
		{"Organisation", cfg.OrgName},
		{"Election", cfg.ElectionTitle},
		{"Scope", t.Scope.Key()},
		{"Ballots cast", t.TotalBallots},
		{"Computed at", t.ComputedAt.UTC().Format(time.RFC3339)},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(summary)), headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set summary style: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "A", "B", 28); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.SetSheetRow(ResultsSheet, "A1", &ResultsHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(ResultsHeader), 1)
	if err := f.SetCellStyle(ResultsSheet, "A1", lastCol, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(ResultsSheet, "A", "C", 24); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	positions := make([]string, 0, len(t.Positions))
	for p := range t.Positions {
		positions = append(positions, p)
	}
	sort.Strings(positions)

	row := 2
	for _, p := range positions {
		pt := t.Positions[p]
		for _, c := range pt.Candidates {
			share := 0.0
			if pt.TotalVotes > 0 {
				share = float64(c.VoteCount) * 100 / float64(pt.TotalVotes)
			}
			winner := "No"
			if c.Winner {
				winner = "Yes"
				if pt.Tied {
					winner = "Tied"
				}
			}
			values := []any{p, c.Rank, c.CandidateName, c.VoteCount, fmt.Sprintf("%.1f", share), winner}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(ResultsSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
