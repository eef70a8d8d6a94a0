// Package export writes analysis results as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// Sheet names, in workbook order.
const (
	SheetStatistics = "Statistics"
	SheetRankings   = "Rankings"
	SheetStudents   = "Students"
)

// Workbook builds the result workbook. d may be nil, in which case the
// per-student sheet is omitted.
func Workbook(rec *stats.Record, d *stats.Derived) (*excelize.File, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil record")
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetStatistics); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetRankings); err != nil {
		f.Close()
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	steps := []func(*excelize.File) error{
		func(f *excelize.File) error { return writeStatistics(f, rec) },
		func(f *excelize.File) error { return writeRankings(f, rec) },
	}
	if d != nil {
		if _, err := f.NewSheet(SheetStudents); err != nil {
			f.Close()
			return nil, fmt.Errorf("new sheet: %w", err)
		}
		steps = append(steps, func(f *excelize.File) error { return writeStudents(f, d) })
	}
	for _, step := range steps {
		if err := step(f); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, rec *stats.Record, d *stats.Derived) error {
	f, err := Workbook(rec, d)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeStatistics(f *excelize.File, rec *stats.Record) error {
	rows := [][]any{{"Column", "Metric", "Value"}}
	for _, col := range rec.BasicInfo.Statistics {
		for _, kv := range col.Value {
			rows = append(rows, []any{col.Key, kv.Key, cellValue(float64(kv.Value))})
		}
	}
	if err := writeRows(f, SheetStatistics, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetStatistics, "A", "C", 18)
}

func writeRankings(f *excelize.File, rec *stats.Record) error {
	rows := [][]any{{"Category", "Rank", "Name", "Score"}}
	for _, top := range rec.Rankings.SubjectTop3 {
		for i, e := range top.Value {
			rows = append(rows, []any{top.Key, i + 1, e.Name, cellValue(float64(e.Score))})
		}
	}
	for i, e := range rec.Rankings.TotalTop3 {
		rows = append(rows, []any{stats.TotalKey, i + 1, e.Name, cellValue(float64(e.Total))})
	}
	if a := rec.Rankings.AverageLeader; a != nil {
		rows = append(rows, []any{stats.AverageKey, 1, a.Name, cellValue(float64(a.Average))})
	}
	if err := writeRows(f, SheetRankings, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetRankings, "A", "D", 16)
}

func writeStudents(f *excelize.File, d *stats.Derived) error {
	header := []any{"Name"}
	for _, s := range d.Subjects {
		header = append(header, s)
	}
	header = append(header, stats.TotalKey, stats.AverageKey)
	rows := [][]any{header}
	for i, name := range d.Names {
		row := []any{name}
		for j := range d.Subjects {
			row = append(row, cellValue(d.Scores[i][j]))
		}
		row = append(row, cellValue(d.Total[i]), cellValue(d.Average[i]))
		rows = append(rows, row)
	}
	return writeRows(f, SheetStudents, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellValue leaves undefined values as blank cells.
func cellValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
