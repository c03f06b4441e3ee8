package entities

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DataGap marks a formula input that was null and counted as zero
type DataGap int

const (
	Missing2MonthHistory DataGap = iota
	Missing6MonthHistory
	MissingOnHand
)

// String method for DataGap enum
func (g DataGap) String() string {
	switch g {
	case Missing2MonthHistory:
		return "missing_2_month_history"
	case Missing6MonthHistory:
		return "missing_6_month_history"
	case MissingOnHand:
		return "missing_on_hand"
	default:
		return "unknown"
	}
}

// ReconciledRow is one product after all four sources are joined
type ReconciledRow struct {
	Product                 ProductKey
	TotalUnitsPast2Months   decimal.NullDecimal
	TotalUnitsPast6Months   decimal.NullDecimal
	OnHand                  decimal.NullDecimal
	TargetQtyOnHandOverride decimal.NullDecimal
	QtyToOrder              decimal.Decimal
	Incomplete              []DataGap
}

// HasGaps reports whether any formula input was defaulted to zero
func (r *ReconciledRow) HasGaps() bool {
	return len(r.Incomplete) > 0
}

// ReconciledTable is the combined record set, one row per product key.
// Columns holds the calculation columns the joins produced; MissingFeeds
// records each source column that was absent and so left its column out.
type ReconciledTable struct {
	Rows         []ReconciledRow
	Columns      map[string]bool
	MissingFeeds []MissingColumn
	index        map[ProductKey]int
}

// NewReconciledTable creates a table with the product column present
func NewReconciledTable(expectedRows int) *ReconciledTable {
	return &ReconciledTable{
		Rows:    make([]ReconciledRow, 0, expectedRows),
		Columns: map[string]bool{ColumnProduct: true},
		index:   make(map[ProductKey]int, expectedRows),
	}
}

// AddRow appends a row; callers guarantee the key is new
func (t *ReconciledTable) AddRow(row ReconciledRow) {
	t.index[row.Product] = len(t.Rows)
	t.Rows = append(t.Rows, row)
}

// Row returns the row for product
func (t *ReconciledTable) Row(product ProductKey) (*ReconciledRow, bool) {
	i, ok := t.index[product]
	if !ok {
		return nil, false
	}
	return &t.Rows[i], true
}

// Contains reports whether product has a reconciled row
func (t *ReconciledTable) Contains(product ProductKey) bool {
	_, ok := t.index[product]
	return ok
}

// SortByProduct orders rows by product key and rebuilds the index
func (t *ReconciledTable) SortByProduct() {
	sort.Slice(t.Rows, func(i, j int) bool {
		return t.Rows[i].Product < t.Rows[j].Product
	})
	for i := range t.Rows {
		t.index[t.Rows[i].Product] = i
	}
}

// UnmatchedProduct is a meds-on-hand product with no dispensed history row
type UnmatchedProduct struct {
	Product ProductKey
	OnHand  decimal.NullDecimal
}

// StaleOverride is an operator override whose key is not in the reconciled set
type StaleOverride struct {
	Product ProductKey
	Target  decimal.Decimal
}
