package calendar

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"date", "pregnancy_week", "stage", "menstrual_phase", "supplements", "todos"}

func exportRow(day Day) []string {
	supplements := make([]string, 0, len(day.Supplements))
	for _, s := range day.Supplements {
		if s.Time != "" {
			supplements = append(supplements, s.Name+" ("+s.Time+")")
			continue
		}
		supplements = append(supplements, s.Name)
	}
	todos := make([]string, 0, len(day.Todos))
	for _, t := range day.Todos {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		todos = append(todos, mark+" "+t.Text)
	}
	return []string{
		day.Date,
		day.PregnancyWeek,
		day.PregnancyPhase,
		day.MenstrualPhase,
		strings.Join(supplements, "; "),
		strings.Join(todos, "; "),
	}
}

func WriteCSV(w io.Writer, days []Day) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, day := range days {
		if err := writer.Write(exportRow(day)); err != nil {
			return fmt.Errorf("write csv row %s: %w", day.Date, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteWorkbook builds a single-sheet workbook. The caller owns closing the file.
func WriteWorkbook(sheet string, days []Day) (*excelize.File, error) {
	if strings.TrimSpace(sheet) == "" {
		sheet = "Calendar"
	}
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, day := range days {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := exportRow(day)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %s: %w", day.Date, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(sheet, "E", "F", 40); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
