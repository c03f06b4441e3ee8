package services

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/domain/entities"
)

// historyMonths is the window the long dispensed history covers
var historyMonths = decimal.NewFromInt(6)

// OrderCalculator applies the replenishment formula to reconciled rows
type OrderCalculator struct {
	targetMonths decimal.Decimal
}

// NewOrderCalculator creates a calculator for a 1..12 month coverage window
func NewOrderCalculator(targetMonths int) (*OrderCalculator, error) {
	if targetMonths < entities.MinTargetMonths || targetMonths > entities.MaxTargetMonths {
		return nil, entities.ErrInvalidTargetMonths
	}
	return &OrderCalculator{targetMonths: decimal.NewFromInt(int64(targetMonths))}, nil
}

// AverageDispensed projects 6-month usage onto the target window:
// total6 / (6 / T), evaluated as total6 * T / 6.
func (c *OrderCalculator) AverageDispensed(total6 decimal.Decimal) decimal.Decimal {
	return total6.Mul(c.targetMonths).Div(historyMonths)
}

// CalculateRow sets QtyToOrder and the row's data gaps.
//
//	avg_dispensed = total_units_past_6_months / (6 / T)
//	max_dispensed = max(total_units_past_2_months, avg_dispensed)
//	target_qty    = override if set, else max_dispensed
//	qty_to_order  = max(0, target_qty - on_hand)
//
// Null history and null on-hand count as zero and are recorded as gaps.
func (c *OrderCalculator) CalculateRow(row *entities.ReconciledRow) {
	row.Incomplete = row.Incomplete[:0]

	total2 := row.TotalUnitsPast2Months.Decimal
	if !row.TotalUnitsPast2Months.Valid {
		total2 = decimal.Zero
		row.Incomplete = append(row.Incomplete, entities.Missing2MonthHistory)
	}
	total6 := row.TotalUnitsPast6Months.Decimal
	if !row.TotalUnitsPast6Months.Valid {
		total6 = decimal.Zero
		row.Incomplete = append(row.Incomplete, entities.Missing6MonthHistory)
	}
	onHand := row.OnHand.Decimal
	if !row.OnHand.Valid {
		onHand = decimal.Zero
		row.Incomplete = append(row.Incomplete, entities.MissingOnHand)
	}

	target := decimal.Max(total2, c.AverageDispensed(total6))
	if row.TargetQtyOnHandOverride.Valid {
		target = row.TargetQtyOnHandOverride.Decimal
	}

	row.QtyToOrder = decimal.Max(decimal.Zero, target.Sub(onHand))
}

// CalculateAll calculates every row of the table independently
func (c *OrderCalculator) CalculateAll(table *entities.ReconciledTable) {
	for i := range table.Rows {
		c.CalculateRow(&table.Rows[i])
	}
}
