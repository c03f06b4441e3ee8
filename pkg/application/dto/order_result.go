package dto

import (
	"time"

	"github.com/vsinha/medorder/pkg/domain/entities"
)

// OrderResult contains the complete output of a reorder run
type OrderResult struct {
	RunID          string
	TargetMonths   int
	Rows           []entities.ReconciledRow
	Unmatched      []entities.UnmatchedProduct
	StaleOverrides []entities.StaleOverride
	SourceRows     map[entities.SourceKind]int
	ComputedAt     time.Time
	Elapsed        time.Duration
}

// ProductsToOrder counts rows with a positive order quantity
func (r *OrderResult) ProductsToOrder() int {
	n := 0
	for i := range r.Rows {
		if r.Rows[i].QtyToOrder.IsPositive() {
			n++
		}
	}
	return n
}

// OverridesApplied counts rows whose target came from an override
func (r *OrderResult) OverridesApplied() int {
	n := 0
	for i := range r.Rows {
		if r.Rows[i].TargetQtyOnHandOverride.Valid {
			n++
		}
	}
	return n
}

// RowsWithGaps returns the rows that had a null formula input
func (r *OrderResult) RowsWithGaps() []entities.ReconciledRow {
	var rows []entities.ReconciledRow
	for i := range r.Rows {
		if r.Rows[i].HasGaps() {
			rows = append(rows, r.Rows[i])
		}
	}
	return rows
}
