package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/domain/entities"
	"github.com/vsinha/medorder/pkg/domain/repositories"
	domainservices "github.com/vsinha/medorder/pkg/domain/services"
)

const utf8BOM = "\ufeff"

// Loader handles loading source tables and override sheets from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadTable loads one source table. Headers are kept as exported; column
// normalization happens in the pipeline. Short rows are padded with blanks.
func (l *Loader) LoadTable(kind entities.SourceKind, filename string) (*entities.Table, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	table, err := l.ReadTable(kind, file)
	if err != nil {
		return nil, err
	}
	table.Path = filename
	return table, nil
}

// ReadTable reads a source table from r
func (l *Loader) ReadTable(kind entities.SourceKind, r io.Reader) (*entities.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", kind)
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	rows := make([]entities.RawRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) > len(header) {
			return nil, fmt.Errorf("%s CSV row %d: expected at most %d columns, got %d", kind, i+2, len(header), len(record))
		}
		if isBlankRecord(record) {
			continue
		}

		row := make(entities.RawRow, len(header))
		for j, col := range header {
			if j < len(record) {
				row[col] = record[j]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return &entities.Table{
		Source:  kind,
		Headers: header,
		Rows:    rows,
	}, nil
}

// OverrideSheet is the parsed content of an overrides CSV. Blank targets
// clear any stored override for that product.
type OverrideSheet struct {
	Set   map[entities.ProductKey]decimal.Decimal
	Clear []entities.ProductKey
}

// LoadOverrides loads an overrides CSV with columns product and
// target_qty_on_hand_override (matched after header normalization)
func (l *Loader) LoadOverrides(filename string) (*OverrideSheet, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open overrides file %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides CSV: %w", err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("overrides CSV must have a header row")
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	productIdx, targetIdx := -1, -1
	for i, col := range header {
		switch domainservices.NormalizeHeader(strings.TrimSpace(col)) {
		case entities.ColumnProduct:
			productIdx = i
		case entities.ColumnTargetOverride:
			targetIdx = i
		}
	}
	if productIdx < 0 || targetIdx < 0 {
		return nil, fmt.Errorf("overrides CSV header mismatch. Expected columns: %s, %s, Got: %v",
			entities.ColumnProduct, entities.ColumnTargetOverride, header)
	}

	sheet := &OverrideSheet{Set: make(map[entities.ProductKey]decimal.Decimal)}
	for i, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		if productIdx >= len(record) {
			return nil, fmt.Errorf("overrides CSV row %d: missing product", i+2)
		}
		product := entities.ProductKey(record[productIdx])
		if product == "" {
			return nil, fmt.Errorf("overrides CSV row %d: product cannot be empty", i+2)
		}

		raw := ""
		if targetIdx < len(record) {
			raw = record[targetIdx]
		}
		target, err := ParseOverrideTarget(raw)
		if err != nil {
			return nil, fmt.Errorf("overrides CSV row %d: %w", i+2, err)
		}

		if !target.Valid {
			delete(sheet.Set, product)
			sheet.Clear = append(sheet.Clear, product)
			continue
		}
		sheet.Set[product] = target.Decimal
	}

	return sheet, nil
}

// ParseOverrideTarget parses an override cell. Blank is null; negative
// targets are rejected.
func ParseOverrideTarget(raw string) (decimal.NullDecimal, error) {
	target, err := entities.ParseQuantity(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid %s: %s", entities.ColumnTargetOverride, raw)
	}
	if target.Valid && target.Decimal.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%s cannot be negative: %s", entities.ColumnTargetOverride, raw)
	}
	return target, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Repository serves the four source tables from a fixed set of file paths
type Repository struct {
	loader *Loader
	paths  map[entities.SourceKind]string
}

var _ repositories.TableRepository = (*Repository)(nil)

// NewRepository creates a table repository over paths
func NewRepository(paths map[entities.SourceKind]string) *Repository {
	copied := make(map[entities.SourceKind]string, len(paths))
	for k, v := range paths {
		copied[k] = v
	}
	return &Repository{loader: NewLoader(), paths: copied}
}

// LoadTable implements repositories.TableRepository
func (r *Repository) LoadTable(source entities.SourceKind) (*entities.Table, error) {
	path, ok := r.paths[source]
	if !ok || path == "" {
		return nil, &entities.MissingInputError{Sources: []entities.SourceKind{source}}
	}
	return r.loader.LoadTable(source, path)
}

// LoadAll loads every source, reporting all absent paths at once
func (r *Repository) LoadAll() (map[entities.SourceKind]*entities.Table, error) {
	var missing []entities.SourceKind
	for _, kind := range entities.AllSources {
		if r.paths[kind] == "" {
			missing = append(missing, kind)
		}
	}
	if len(missing) > 0 {
		return nil, &entities.MissingInputError{Sources: missing}
	}

	tables := make(map[entities.SourceKind]*entities.Table, len(entities.AllSources))
	for _, kind := range entities.AllSources {
		table, err := r.LoadTable(kind)
		if err != nil {
			return nil, err
		}
		tables[kind] = table
	}
	return tables, nil
}
