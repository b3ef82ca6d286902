// Package export renders reports as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"uniform-tracker/internal/core"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the school deficit workbook.
const (
	SheetSummary      = "Summary"
	SheetDeficits     = "Deficits"
	SheetSizeRequests = "Size Requests"
)

// WriteSchoolReport writes a three-sheet workbook for one school's deficit report.
func WriteSchoolReport(w io.Writer, school core.School, report core.SchoolDeficitReport) error {
	f, err := BuildSchoolReport(school, report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// BuildSchoolReport returns the workbook without writing it. Callers must Close it.
func BuildSchoolReport(school core.School, report core.SchoolDeficitReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}

	totalDeficit, openRequests := 0, 0
	for _, d := range report.UniformDeficits {
		totalDeficit += d.TotalDeficit
	}
	for _, r := range report.SizeRequests {
		openRequests += len(r.Students)
	}

	summary := [][]any{
		{"School", school.Name},
		{"School ID", school.ID},
		{"Students", report.TotalStudents},
		{"Students with deficits", report.StudentsWithDeficits},
		{"Total deficit", totalDeficit},
		{"Open size requests", openRequests},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		f.Close()
		return nil, err
	}

	deficits := [][]any{{"Uniform", "Level", "Gender", "Total deficit", "Students affected", "Students"}}
	for _, d := range report.UniformDeficits {
		names := make([]string, 0, len(d.StudentsAffected))
		for _, s := range d.StudentsAffected {
			names = append(names, fmt.Sprintf("%s (%d)", s.Name, s.Deficit))
		}
		deficits = append(deficits, []any{d.UniformName, d.Level, d.Gender, d.TotalDeficit, len(d.StudentsAffected), strings.Join(names, ", ")})
	}
	if err := addSheet(f, SheetDeficits, deficits); err != nil {
		f.Close()
		return nil, err
	}

	requests := [][]any{{"Uniform", "Size", "Requests", "Students"}}
	for _, r := range report.SizeRequests {
		names := make([]string, 0, len(r.Students))
		for _, s := range r.Students {
			names = append(names, s.Name)
		}
		requests = append(requests, []any{r.UniformName, r.Size, len(r.Students), strings.Join(names, ", ")})
	}
	if err := addSheet(f, SheetSizeRequests, requests); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", name, err)
	}
	if err := writeRows(f, name, rows); err != nil {
		return err
	}
	return f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
