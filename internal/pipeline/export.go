package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"carpivot/internal"
)

const (
	SheetPreprocessed = "preprocessed"
	SheetNormalized   = "normalized"
	SheetOutput       = "output"
)

// Workbook holds the three stage tables written to the output file.
type Workbook struct {
	Preprocessed internal.Table
	Normalized   internal.Table
	Output       []internal.OutputRecord
}

// BuildXLSX lays out the workbook. Every sheet starts with a row-index
// column holding the listing ID under an empty header.
func BuildXLSX(wb Workbook) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetPreprocessed); err != nil {
		return nil, err
	}
	if err := writeTable(f, SheetPreprocessed, wb.Preprocessed); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetNormalized); err != nil {
		return nil, err
	}
	if err := writeTable(f, SheetNormalized, wb.Normalized); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetOutput); err != nil {
		return nil, err
	}
	header := append([]string{""}, internal.OutputColumns...)
	if err := writeRow(f, SheetOutput, 1, stringsToAny(header)); err != nil {
		return nil, err
	}
	for i, rec := range wb.Output {
		values := rec.Values()
		row := make([]any, 0, len(values)+1)
		row = append(row, rec.ID)
		for _, v := range values {
			row = append(row, v.Cell())
		}
		if err := writeRow(f, SheetOutput, i+2, row); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// ExportXLSX writes the workbook next to outputPath and renames it into
// place, so a failed run leaves no partial file behind.
func ExportXLSX(wb Workbook, outputPath string) error {
	f, err := BuildXLSX(wb)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".carpivot-*.xlsx")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		cleanup()
		return err
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, t internal.Table) error {
	header := append([]string{""}, t.Columns...)
	if err := writeRow(f, sheet, 1, stringsToAny(header)); err != nil {
		return err
	}
	for i, l := range t.Listings {
		row := make([]any, 0, len(t.Columns)+1)
		row = append(row, l.ID)
		for _, col := range t.Columns {
			row = append(row, l.Get(col).Cell())
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, r int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
