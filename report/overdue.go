// Package report exports loan reports as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"library-client/library"
)

// OverdueSheet is the name of the detail sheet.
const OverdueSheet = "Overdue loans"

// SummarySheet holds the severity counts.
const SummarySheet = "Summary"

var overdueHeaders = []string{
	"Loan ID",
	"Book",
	"ISBN",
	"Member",
	"Loan Date",
	"Due Date",
	"Days Overdue",
	"Severity",
	"Fine",
}

// BuildOverdueWorkbook lays out entries, most overdue first as given, plus a
// summary sheet with the severity counts.
func BuildOverdueWorkbook(entries []library.OverdueEntry, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", OverdueSheet); err != nil {
		return nil, err
	}

	for colIdx, header := range overdueHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 1)
		f.SetCellValue(OverdueSheet, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(overdueHeaders))
	f.SetCellStyle(OverdueSheet, "A1", lastCol+"1", headerStyle)

	for i, e := range entries {
		rowNum := i + 2
		cell := func(col int) string {
			name, _ := excelize.CoordinatesToCellName(col, rowNum)
			return name
		}
		l := e.Loan
		f.SetCellValue(OverdueSheet, cell(1), l.ID.String())
		f.SetCellValue(OverdueSheet, cell(2), library.LoanBookTitle(&l))
		f.SetCellValue(OverdueSheet, cell(3), l.BookISBN)
		f.SetCellValue(OverdueSheet, cell(4), library.LoanMemberName(&l))
		f.SetCellValue(OverdueSheet, cell(5), formatDate(l.LoanDate))
		f.SetCellValue(OverdueSheet, cell(6), formatDate(l.DueDate))
		f.SetCellValue(OverdueSheet, cell(7), e.DaysOverdue)
		f.SetCellValue(OverdueSheet, cell(8), string(e.Severity))
		f.SetCellValue(OverdueSheet, cell(9), l.Fine.InexactFloat64())
	}
	if err := f.SetColWidth(OverdueSheet, "A", lastCol, 18); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, err
	}
	counts := library.CountSeverities(entries)
	rows := [][]any{
		{"Generated", generatedAt.Format("2006-01-02 15:04:05")},
		{"Total overdue", len(entries)},
		{"Mild (1-7 days)", counts.Mild},
		{"Moderate (8-30 days)", counts.Moderate},
		{"Severe (31+ days)", counts.Severe},
	}
	for i, row := range rows {
		for j, v := range row {
			name, _ := excelize.CoordinatesToCellName(j+1, i+1)
			f.SetCellValue(SummarySheet, name, v)
		}
	}
	f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle)
	if err := f.SetColWidth(SummarySheet, "A", "B", 24); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteOverdueWorkbook builds the workbook and writes it as XLSX to w.
func WriteOverdueWorkbook(w io.Writer, entries []library.OverdueEntry, generatedAt time.Time) error {
	f, err := BuildOverdueWorkbook(entries, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatDate(t library.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
