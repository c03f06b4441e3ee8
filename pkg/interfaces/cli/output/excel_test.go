package output

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestGenerate_Excel(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(buildTestResult(), Config{Format: "xlsx", OutputDir: dir, Stdout: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Failed to generate workbook: %v", err)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, ExcelFileName))
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != OrdersSheet || sheets[1] != UnmatchedSheet {
		t.Fatalf("Expected sheets [Orders Unmatched], got %v", sheets)
	}

	rows, err := f.GetRows(OrdersSheet)
	if err != nil {
		t.Fatalf("Failed to read orders sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "product" || rows[0][5] != "target_qty_on_hand_override" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	qty, err := f.GetCellValue(OrdersSheet, "B2", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("Failed to read qty cell: %v", err)
	}
	if qty != "3.3333333333333333" {
		t.Errorf("Expected unrounded qty 3.3333333333333333, got %s", qty)
	}
	if cellType, _ := f.GetCellType(OrdersSheet, "B2"); cellType == excelize.CellTypeInlineString || cellType == excelize.CellTypeSharedString {
		t.Errorf("Expected a numeric qty cell, got type %v", cellType)
	}
	if rows[2][3] != "" {
		t.Errorf("Expected empty cell for null 6 month total, got %q", rows[2][3])
	}

	unmatched, err := f.GetRows(UnmatchedSheet)
	if err != nil {
		t.Fatalf("Failed to read unmatched sheet: %v", err)
	}
	if len(unmatched) != 2 || unmatched[1][0] != "Cephalexin 500mg 30 (capsule)" || unmatched[1][1] != "12" {
		t.Errorf("Unexpected unmatched sheet: %v", unmatched)
	}
}
