package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"carpivot/internal"
)

func sampleWorkbook() Workbook {
	l := internal.NewListing(1)
	l.Cells[internal.ColMakeText] = txt("AUDI")
	l.Cells["Km"] = num("32000")
	pre := internal.Table{Columns: append(append([]string(nil), internal.FixedColumns...), "Km"), Listings: []internal.Listing{l}}
	norm := Normalize(pre)
	return Workbook{Preprocessed: pre, Normalized: norm, Output: Project(norm, swiss)}
}

func TestBuildXLSXSheets(t *testing.T) {
	f, err := BuildXLSX(sampleWorkbook())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetPreprocessed, SheetNormalized, SheetOutput}, f.GetSheetList())

	pre, err := f.GetRows(SheetPreprocessed)
	require.NoError(t, err)
	require.Len(t, pre, 2)
	assert.Equal(t, []string{"", "ID", "MakeText", "TypeName", "TypeNameFull", "ModelText", "ModelTypeText", "Km"}, pre[0])
	assert.Equal(t, "1", pre[1][0])
	assert.Equal(t, "AUDI", pre[1][2])
	assert.Equal(t, "32000", pre[1][7])

	norm, err := f.GetRows(SheetNormalized)
	require.NoError(t, err)
	assert.Equal(t, []string{"fuel_consumption_unit", "mileage", "color", "carType", "type"}, norm[0][len(norm[0])-5:])

	out, err := f.GetRows(SheetOutput)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, append([]string{""}, internal.OutputColumns...), out[0])

	mileage, err := f.GetCellValue(SheetOutput, "K2")
	require.NoError(t, err)
	assert.Equal(t, "32000.0", mileage)
	country, err := f.GetCellValue(SheetOutput, "H2")
	require.NoError(t, err)
	assert.Equal(t, "CH", country)
}

func TestExportXLSXWritesAtomically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path := filepath.Join(dir, "result.xlsx")

	require.NoError(t, ExportXLSX(sampleWorkbook(), path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "result.xlsx", entries[0].Name())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetPreprocessed, SheetNormalized, SheetOutput}, f.GetSheetList())
}

func TestExportXLSXUnwritableDestination(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := ExportXLSX(sampleWorkbook(), filepath.Join(blocker, "result.xlsx"))
	require.Error(t, err)
}
