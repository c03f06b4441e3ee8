package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/application/dto"
	"github.com/vsinha/medorder/pkg/domain/entities"
	"github.com/xuri/excelize/v2"
)

const (
	OrdersSheet    = "Orders"
	UnmatchedSheet = "Unmatched"
)

// generateExcelOutput writes the order and unmatched tables to one workbook
func generateExcelOutput(result *dto.OrderResult, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for xlsx format")
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, ExcelFileName)
	if err := WriteWorkbook(result, filename); err != nil {
		return fmt.Errorf("failed to write xlsx file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.stdout(), "💾 Workbook saved to: %s\n", filename)
	}
	return nil
}

// WriteWorkbook saves the result as an xlsx workbook with an Orders and an
// Unmatched sheet. Quantities are numeric cells at full precision; null cells
// stay empty.
func WriteWorkbook(result *dto.OrderResult, filename string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OrdersSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(UnmatchedSheet); err != nil {
		return err
	}

	if err := writeHeader(f, OrdersSheet, OrderColumns); err != nil {
		return err
	}
	for i, row := range result.Rows {
		quantities := []decimal.NullDecimal{
			decimal.NewNullDecimal(row.QtyToOrder),
			row.TotalUnitsPast2Months,
			row.TotalUnitsPast6Months,
			row.OnHand,
			row.TargetQtyOnHandOverride,
		}
		if err := writeRow(f, OrdersSheet, i+2, row.Product, quantities); err != nil {
			return err
		}
	}

	if err := writeHeader(f, UnmatchedSheet, UnmatchedColumns); err != nil {
		return err
	}
	for i, u := range result.Unmatched {
		if err := writeRow(f, UnmatchedSheet, i+2, u.Product, []decimal.NullDecimal{u.OnHand}); err != nil {
			return err
		}
	}

	return f.SaveAs(filename)
}

func writeHeader(f *excelize.File, sheet string, headings []string) error {
	for col, h := range headings {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

// writeRow puts the product in column A and the quantities after it.
// SetCellDefault keeps the decimal text as the numeric cell value.
func writeRow(f *excelize.File, sheet string, rowNo int, product entities.ProductKey, quantities []decimal.NullDecimal) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, string(product)); err != nil {
		return err
	}

	for i, q := range quantities {
		if !q.Valid {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+2, rowNo)
		if err != nil {
			return err
		}
		if err := f.SetCellDefault(sheet, cell, q.Decimal.String()); err != nil {
			return err
		}
	}
	return nil
}
