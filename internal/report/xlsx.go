package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"csvingest/internal/ingest"
)

const (
	summarySheet  = "Summary"
	rejectedSheet = "Rejected"
)

// WriteXLSX renders s as a workbook with a Summary sheet of key/value rows
// and a Rejected sheet with one row per retained field error.
func WriteXLSX(w io.Writer, s ingest.Summary) error {
	f, err := buildWorkbook(s)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path.
func SaveXLSX(path string, s ingest.Summary) error {
	f, err := buildWorkbook(s)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(s ingest.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	rows := [][]any{
		{"run_id", s.RunID},
		{"job", s.Job},
		{"status", string(s.Status)},
		{"rows_seen", s.RowsSeen},
		{"rows_accepted", s.RowsAccepted},
		{"rows_rejected", s.RowsRejected},
		{"first_line", s.FirstLine},
		{"last_line", s.LastLine},
		{"truncated", s.Truncated},
		{"started_at", s.StartedAt.UTC().Format(time.RFC3339)},
		{"duration_ms", s.Duration.Milliseconds()},
	}
	if s.Error != "" {
		rows = append(rows, []any{"error", s.Error})
	}
	for _, r := range sortedReasons(s.RejectedByReason) {
		rows = append(rows, []any{"rejected." + string(r), s.RejectedByReason[r]})
	}
	if err := setRows(f, summarySheet, rows); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(rejectedSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	rej := [][]any{{"line", "reason", "column", "index", "raw", "message"}}
	for _, o := range s.Rejected {
		for _, fe := range o.Errors {
			rej = append(rej, []any{fe.Line, string(fe.Reason), fe.Column, fe.Index, fe.Raw, fe.Message})
		}
	}
	if err := setRows(f, rejectedSheet, rej); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		row := r
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
