package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/application/dto"
	"github.com/vsinha/medorder/pkg/domain/entities"
)

const (
	OrdersFileName    = "order_quantities.csv"
	UnmatchedFileName = "unmatched_products.csv"
	ExcelFileName     = "order_quantities.xlsx"
	JSONFileName      = "order_quantities.json"

	displayPlaces = 2
)

// OrderColumns is the column order of the result table
var OrderColumns = []string{
	entities.ColumnProduct,
	entities.ColumnQtyToOrder,
	entities.ColumnTotalUnits2M,
	entities.ColumnTotalUnits6M,
	entities.ColumnOnHand,
	entities.ColumnTargetOverride,
}

// UnmatchedColumns is the column order of the unmatched report
var UnmatchedColumns = []string{entities.ColumnProduct, entities.ColumnOnHand}

// Config holds configuration for output generation
type Config struct {
	Format     string
	OutputDir  string
	Verbose    bool
	InputFiles map[entities.SourceKind]string
	Stdout     io.Writer
}

func (c Config) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

// Generate creates output in the specified format
func Generate(result *dto.OrderResult, config Config) error {
	switch config.Format {
	case "text", "":
		return generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	case "xlsx":
		return generateExcelOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// FormatQuantity renders a quantity rounded for display
func FormatQuantity(d decimal.Decimal) string {
	return d.Round(displayPlaces).String()
}

// ExportNullable renders a nullable quantity at full precision for files
// that may be read back; null is the empty string
func ExportNullable(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// OrderRecord returns the row as CSV fields in OrderColumns order
func OrderRecord(row entities.ReconciledRow) []string {
	return []string{
		string(row.Product),
		row.QtyToOrder.String(),
		ExportNullable(row.TotalUnitsPast2Months),
		ExportNullable(row.TotalUnitsPast6Months),
		ExportNullable(row.OnHand),
		ExportNullable(row.TargetQtyOnHandOverride),
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(result *dto.OrderResult, config Config) error {
	w := config.stdout()

	fmt.Fprintf(w, "📊 Reorder Summary\n")
	fmt.Fprintf(w, "==================\n\n")

	fmt.Fprintf(w, "Target Months: %d\n", result.TargetMonths)
	fmt.Fprintf(w, "Products: %d\n", len(result.Rows))
	fmt.Fprintf(w, "To Order: %d\n", result.ProductsToOrder())
	fmt.Fprintf(w, "Overrides Applied: %d\n", result.OverridesApplied())
	fmt.Fprintf(w, "Unmatched: %d\n", len(result.Unmatched))
	if config.Verbose {
		fmt.Fprintf(w, "Run ID: %s\n", result.RunID)
		fmt.Fprintf(w, "Computation Time: %v\n", result.Elapsed)
	}
	fmt.Fprintln(w)

	width := productWidth(result)

	if len(result.Rows) > 0 {
		fmt.Fprintf(w, "📋 Order Quantities:\n")
		fmt.Fprintf(w, "%-*s %12s %12s %12s %10s %10s  %s\n",
			width, "Product", "Qty To Order", "Units 2M", "Units 6M", "On Hand", "Override", "Notes")
		fmt.Fprintf(w, "%s %s %s %s %s %s  %s\n",
			strings.Repeat("-", width), strings.Repeat("-", 12), strings.Repeat("-", 12),
			strings.Repeat("-", 12), strings.Repeat("-", 10), strings.Repeat("-", 10), "-----")

		for _, row := range result.Rows {
			fmt.Fprintf(w, "%-*s %12s %12s %12s %10s %10s  %s\n",
				width, row.Product,
				FormatQuantity(row.QtyToOrder),
				textNullable(row.TotalUnitsPast2Months),
				textNullable(row.TotalUnitsPast6Months),
				textNullable(row.OnHand),
				textNullable(row.TargetQtyOnHandOverride),
				gapNotes(row.Incomplete))
		}
		fmt.Fprintln(w)
	}

	if len(result.Unmatched) > 0 {
		fmt.Fprintf(w, "⚠️  On Hand Without Dispensed History:\n")
		fmt.Fprintf(w, "%-*s %10s\n", width, "Product", "On Hand")
		fmt.Fprintf(w, "%s %s\n", strings.Repeat("-", width), strings.Repeat("-", 10))
		for _, u := range result.Unmatched {
			fmt.Fprintf(w, "%-*s %10s\n", width, u.Product, textNullable(u.OnHand))
		}
		fmt.Fprintln(w)
	}

	if len(result.StaleOverrides) > 0 {
		fmt.Fprintf(w, "⚠️  Overrides With No Matching Product:\n")
		for _, o := range result.StaleOverrides {
			fmt.Fprintf(w, "  %s = %s\n", o.Product, FormatQuantity(o.Target))
		}
		fmt.Fprintln(w)
	}

	return nil
}

type jsonRow struct {
	Product                 entities.ProductKey `json:"product"`
	QtyToOrder              decimal.Decimal     `json:"qty_to_order"`
	TotalUnitsPast2Months   decimal.NullDecimal `json:"total_units_past_2_months"`
	TotalUnitsPast6Months   decimal.NullDecimal `json:"total_units_past_6_months"`
	OnHand                  decimal.NullDecimal `json:"on_hand"`
	TargetQtyOnHandOverride decimal.NullDecimal `json:"target_qty_on_hand_override"`
	Incomplete              []string            `json:"incomplete,omitempty"`
}

type jsonUnmatched struct {
	Product entities.ProductKey `json:"product"`
	OnHand  decimal.NullDecimal `json:"on_hand"`
}

type jsonStale struct {
	Product entities.ProductKey `json:"product"`
	Target  decimal.Decimal     `json:"target_qty_on_hand_override"`
}

type jsonResult struct {
	RunID          string          `json:"run_id"`
	TargetMonths   int             `json:"target_months"`
	ComputedAt     time.Time       `json:"computed_at"`
	Rows           []jsonRow       `json:"rows"`
	Unmatched      []jsonUnmatched `json:"unmatched"`
	StaleOverrides []jsonStale     `json:"stale_overrides"`
}

func roundNullable(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Round(displayPlaces))
}

func toJSON(result *dto.OrderResult) jsonResult {
	out := jsonResult{
		RunID:          result.RunID,
		TargetMonths:   result.TargetMonths,
		ComputedAt:     result.ComputedAt,
		Rows:           make([]jsonRow, 0, len(result.Rows)),
		Unmatched:      make([]jsonUnmatched, 0, len(result.Unmatched)),
		StaleOverrides: make([]jsonStale, 0, len(result.StaleOverrides)),
	}
	for _, row := range result.Rows {
		jr := jsonRow{
			Product:                 row.Product,
			QtyToOrder:              row.QtyToOrder.Round(displayPlaces),
			TotalUnitsPast2Months:   roundNullable(row.TotalUnitsPast2Months),
			TotalUnitsPast6Months:   roundNullable(row.TotalUnitsPast6Months),
			OnHand:                  roundNullable(row.OnHand),
			TargetQtyOnHandOverride: roundNullable(row.TargetQtyOnHandOverride),
		}
		for _, g := range row.Incomplete {
			jr.Incomplete = append(jr.Incomplete, g.String())
		}
		out.Rows = append(out.Rows, jr)
	}
	for _, u := range result.Unmatched {
		out.Unmatched = append(out.Unmatched, jsonUnmatched{Product: u.Product, OnHand: roundNullable(u.OnHand)})
	}
	for _, o := range result.StaleOverrides {
		out.StaleOverrides = append(out.StaleOverrides, jsonStale{Product: o.Product, Target: o.Target})
	}
	return out
}

// generateJSONOutput creates JSON output
func generateJSONOutput(result *dto.OrderResult, config Config) error {
	jsonData, err := json.MarshalIndent(toJSON(result), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(config.stdout(), string(jsonData))
		return nil
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, JSONFileName)
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.stdout(), "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput creates CSV output
func generateCSVOutput(result *dto.OrderResult, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ordersFile := filepath.Join(config.OutputDir, OrdersFileName)
	if err := writeOrdersCSV(result.Rows, ordersFile); err != nil {
		return fmt.Errorf("failed to write order quantities CSV: %w", err)
	}

	unmatchedFile := filepath.Join(config.OutputDir, UnmatchedFileName)
	if err := writeUnmatchedCSV(result.Unmatched, unmatchedFile); err != nil {
		return fmt.Errorf("failed to write unmatched products CSV: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.stdout(), "💾 CSV results saved to:\n")
		fmt.Fprintf(config.stdout(), "  Order Quantities: %s\n", ordersFile)
		fmt.Fprintf(config.stdout(), "  Unmatched Products: %s\n", unmatchedFile)
	}

	return nil
}

// WriteOrders writes the result table as CSV
func WriteOrders(w io.Writer, rows []entities.ReconciledRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OrderColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(OrderRecord(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteUnmatched writes the unmatched report as CSV
func WriteUnmatched(w io.Writer, unmatched []entities.UnmatchedProduct) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(UnmatchedColumns); err != nil {
		return err
	}
	for _, u := range unmatched {
		if err := cw.Write([]string{string(u.Product), ExportNullable(u.OnHand)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeOrdersCSV(rows []entities.ReconciledRow, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteOrders(file, rows)
}

func writeUnmatchedCSV(unmatched []entities.UnmatchedProduct, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteUnmatched(file, unmatched)
}

func textNullable(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return FormatQuantity(d.Decimal)
}

func gapNotes(gaps []entities.DataGap) string {
	if len(gaps) == 0 {
		return ""
	}
	names := make([]string, len(gaps))
	for i, g := range gaps {
		names[i] = g.String()
	}
	return "incomplete: " + strings.Join(names, ", ")
}

func productWidth(result *dto.OrderResult) int {
	width := len("Product")
	for _, row := range result.Rows {
		if n := len(row.Product); n > width {
			width = n
		}
	}
	for _, u := range result.Unmatched {
		if n := len(u.Product); n > width {
			width = n
		}
	}
	return width
}
