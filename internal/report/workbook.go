// Package report exports learner progress as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-progress/internal/progression"
	"github.com/p-n-ai/pai-progress/internal/streak"
)

const (
	SheetSummary = "Summary"
	SheetStages  = "Stages"
)

var stageHeader = []any{
	"#", "Stage ID", "Title", "State", "Percent", "Video minutes", "Duration", "Quiz passed", "Completed at",
}

// WriteWorkbook writes an xlsx workbook with a summary sheet and one row per
// stage of ov.
func WriteWorkbook(w io.Writer, ov progression.SkillOverview, s streak.State) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetStages); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	summary := [][]any{
		{"Learner", ov.LearnerID},
		{"Skill", ov.SkillID},
		{"Name", ov.Name},
		{"Percent complete", ov.PercentComplete},
		{"Next stage", ov.NextStage},
		{"Current streak (days)", s.CurrentDays},
		{"Longest streak (days)", s.LongestDays},
		{"Last activity", s.LastActivity.String()},
	}
	for i, row := range summary {
		if err := setRow(f, SheetSummary, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 24); err != nil {
		return fmt.Errorf("size summary: %w", err)
	}

	if err := setRow(f, SheetStages, 1, stageHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetStages, "A1", "I1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for i, st := range ov.Stages {
		completedAt := ""
		if st.CompletedAt != nil {
			completedAt = st.CompletedAt.UTC().Format(time.RFC3339)
		}
		row := []any{
			st.SequenceIndex + 1,
			st.ID,
			st.Title,
			string(st.State),
			st.PercentComplete,
			st.VideoWatchMinutes,
			st.DurationMinutes,
			st.QuizCompleted,
			completedAt,
		}
		if err := setRow(f, SheetStages, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetStages, "B", "C", 24); err != nil {
		return fmt.Errorf("size stages: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
