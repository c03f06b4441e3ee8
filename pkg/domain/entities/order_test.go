package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestReconciledTable_SortByProduct(t *testing.T) {
	table := NewReconciledTable(3)
	table.AddRow(ReconciledRow{Product: "Zinc 50mg 60 (tablet)"})
	table.AddRow(ReconciledRow{Product: "Amoxicillin 250mg 20 (capsule)"})
	table.AddRow(ReconciledRow{Product: "Ibuprofen 200mg 100 (tablet)"})

	table.SortByProduct()

	expected := []ProductKey{
		"Amoxicillin 250mg 20 (capsule)",
		"Ibuprofen 200mg 100 (tablet)",
		"Zinc 50mg 60 (tablet)",
	}
	for i, key := range expected {
		if table.Rows[i].Product != key {
			t.Errorf("Expected row %d to be %s, got %s", i, key, table.Rows[i].Product)
		}
		row, ok := table.Row(key)
		if !ok || row.Product != key {
			t.Errorf("Expected index to resolve %s after sort", key)
		}
	}

	if !table.Columns[ColumnProduct] {
		t.Error("Expected product column to be present on a new table")
	}
}

func TestReconciledRow_HasGaps(t *testing.T) {
	row := ReconciledRow{Product: "X", OnHand: decimal.NewNullDecimal(decimal.NewFromInt(1))}
	if row.HasGaps() {
		t.Error("Expected no gaps on a fresh row")
	}
	row.Incomplete = append(row.Incomplete, MissingOnHand)
	if !row.HasGaps() {
		t.Error("Expected gaps after marking missing on hand")
	}
	if MissingOnHand.String() != "missing_on_hand" {
		t.Errorf("Expected missing_on_hand, got %s", MissingOnHand.String())
	}
}
