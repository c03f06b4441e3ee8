package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RawRow maps a source column name to the raw cell text for one product line
type RawRow map[string]string

// Lookup returns the cell for column. Absent columns and blank cells are null.
func (r RawRow) Lookup(column string) (string, bool) {
	v, ok := r[column]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Get returns the cell for column, rendering null as the empty string
func (r RawRow) Get(column string) string {
	v, _ := r.Lookup(column)
	return v
}

// Table is one loaded source file
type Table struct {
	Source  SourceKind
	Path    string
	Headers []string
	Rows    []RawRow
}

// HasColumn reports whether the table header carries column
func (t *Table) HasColumn(column string) bool {
	for _, h := range t.Headers {
		if h == column {
			return true
		}
	}
	return false
}

// ParseQuantity converts a cell into a nullable decimal. Blank cells are null.
func ParseQuantity(raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid quantity: %s", raw)
	}
	return decimal.NewNullDecimal(d), nil
}

// KeyedRow is a source row reduced to its product key and quantity
type KeyedRow struct {
	Product  ProductKey
	Quantity decimal.NullDecimal
	Rows     []int // 1-based data row numbers that contributed
}

// KeyedSource is a source table keyed by product, preserving first-seen order
type KeyedSource struct {
	Kind           SourceKind
	QuantityColumn string
	HasQuantity    bool
	Rows           []KeyedRow
	index          map[ProductKey]int
}

// NewKeyedSource creates an empty keyed source. hasQuantity records whether
// the source table actually carried quantityColumn.
func NewKeyedSource(kind SourceKind, quantityColumn string, hasQuantity bool) *KeyedSource {
	return &KeyedSource{
		Kind:           kind,
		QuantityColumn: quantityColumn,
		HasQuantity:    hasQuantity,
		index:          make(map[ProductKey]int),
	}
}

// Add appends a row for a key not yet present
func (s *KeyedSource) Add(row KeyedRow) {
	s.index[row.Product] = len(s.Rows)
	s.Rows = append(s.Rows, row)
}

// Lookup returns the keyed row for product
func (s *KeyedSource) Lookup(product ProductKey) (*KeyedRow, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[product]
	if !ok {
		return nil, false
	}
	return &s.Rows[i], true
}

// Len returns the number of distinct keys
func (s *KeyedSource) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}
