package reportbuilder

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sifthub/export-worker/internal/apperr"
	"github.com/sifthub/export-worker/internal/workbook"
)

// defaultSheetName is excelize's name for the sheet every new workbook
// starts with; builders rename or delete it once their own sheets exist.
const defaultSheetName = "Sheet1"

// sheetSpec describes one sheet's skeleton: its title row, any metadata
// lines rendered directly under the title, and its header row.
type sheetSpec struct {
	Name     string
	Title    string
	Metadata []string
	Headers  []string
}

// buildSkeleton renders Phase A: an in-memory workbook containing every
// sheet in specs with its title, metadata and bold header row written, and
// nothing else. The caller uploads the result once under the artifact key
// before Phase B's page appends begin.
func buildSkeleton(specs []sheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("reportbuilder: build header style: %w", err)
	}
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return nil, fmt.Errorf("reportbuilder: build title style: %w", err)
	}

	for i, spec := range specs {
		sheetName := spec.Name
		if i == 0 {
			if err := f.SetSheetName(defaultSheetName, sheetName); err != nil {
				return nil, fmt.Errorf("reportbuilder: rename default sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheetName); err != nil {
			return nil, fmt.Errorf("reportbuilder: create sheet %s: %w", sheetName, err)
		}

		row := 1
		if spec.Title != "" {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			_ = f.SetCellValue(sheetName, cell, spec.Title)
			_ = f.SetCellStyle(sheetName, cell, cell, titleStyle)
			row++
		}
		for _, line := range spec.Metadata {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			_ = f.SetCellValue(sheetName, cell, line)
			row++
		}
		row++ // blank row between metadata and header
		for col, header := range spec.Headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, header)
		}
		startCell, _ := excelize.CoordinatesToCellName(1, row)
		endCell, _ := excelize.CoordinatesToCellName(len(spec.Headers), row)
		_ = f.SetCellStyle(sheetName, startCell, endCell, headerStyle)
	}

	if len(specs) > 0 {
		idx, err := f.GetSheetIndex(specs[0].Name)
		if err == nil {
			f.SetActiveSheet(idx)
		}
	}
	return f, nil
}

// uploadSkeleton renders specs and uploads the resulting workbook under
// key, the one-time Phase A write.
func uploadSkeleton(ctx context.Context, storage workbook.Adapter, key string, specs []sheetSpec) error {
	f, err := buildSkeleton(specs)
	if err != nil {
		return err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("%w: render skeleton: %v", apperr.ErrStorageWrite, err)
	}
	return storage.Put(ctx, key, buf, "")
}

// appendRows performs one Phase B cycle: download the workbook at key,
// write rows into sheet starting at its next empty row (first column
// non-empty marks occupancy), and re-upload. Every page calls this once,
// so the pipeline must be sequential per key — concurrent appends to the
// same key are not supported, matching §4.6's concurrency note.
func appendRows(ctx context.Context, storage workbook.Adapter, key, sheet string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	data, err := storage.Get(ctx, key)
	if err != nil {
		return err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: open workbook: %v", apperr.ErrStorageRead, err)
	}

	startRow, err := nextEmptyRow(f, sheet)
	if err != nil {
		return fmt.Errorf("%w: locate next row in %s: %v", apperr.ErrStorageWrite, sheet, err)
	}
	for i, row := range rows {
		rowNum := startRow + i
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("%w: write %s!%s: %v", apperr.ErrStorageWrite, sheet, cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("%w: render workbook: %v", apperr.ErrStorageWrite, err)
	}
	return storage.Put(ctx, key, buf, "")
}

// nextEmptyRow returns the 1-based row index immediately below the sheet's
// last occupied row — "occupied" meaning a non-empty first column. Title,
// metadata and the blank separator row all precede the header row the
// skeleton writes, so scanning for the bottommost non-empty row (rather
// than the first gap) is what keeps appends landing after the header
// instead of inside the skeleton's intentional blank line.
func nextEmptyRow(f *excelize.File, sheet string) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, err
	}
	last := 0
	for i, row := range rows {
		if len(row) > 0 && row[0] != "" {
			last = i + 1
		}
	}
	return last + 1, nil
}
