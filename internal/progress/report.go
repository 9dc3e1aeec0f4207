package progress

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SubjectNamer resolves a subject code to its display name for the report.
type SubjectNamer interface {
	SubjectName(code string) (string, bool)
}

const reportSheet = "Completed Topics"

// WriteReport renders the completed-topic list as an xlsx workbook.
func WriteReport(ctx context.Context, w io.Writer, store Store, namer SubjectNamer) error {
	records, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list progress records: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return fmt.Errorf("create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{"Subject Code", "Subject Name", "Unit", "Topic Index", "Completed At"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for row, rec := range records {
		name := ""
		if namer != nil {
			name, _ = namer.SubjectName(rec.SubjectCode)
		}
		values := []any{
			rec.SubjectCode,
			name,
			rec.UnitNumber,
			rec.TopicIndex,
			rec.CompletedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("report cell name: %w", err)
			}
			if err := f.SetCellValue(reportSheet, cell, v); err != nil {
				return fmt.Errorf("write report row: %w", err)
			}
		}
	}

	if err := f.SetColWidth(reportSheet, "A", "E", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
