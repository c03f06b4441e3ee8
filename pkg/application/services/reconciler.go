package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/domain/entities"
)

// RequiredColumns must be present in the reconciled table before any order
// quantity is calculated
var RequiredColumns = []string{
	entities.ColumnTotalUnits6M,
	entities.ColumnTotalUnits2M,
	entities.ColumnOnHand,
}

// KeyedSources holds the four source tables after keying
type KeyedSources struct {
	MedsOnHand     *entities.KeyedSource
	ProductsOnHand *entities.KeyedSource
	Dispensed2M    *entities.KeyedSource
	Dispensed6M    *entities.KeyedSource
}

// Reconciler joins the keyed sources into one record set
type Reconciler struct{}

// NewReconciler creates a new reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Reconcile outer-joins the two dispensed sources on product key, then
// left-joins on-hand from products-on-hand and meds-on-hand, keeping the
// products value when it is non-null and the meds value otherwise. Rows come
// back sorted by product key.
func (r *Reconciler) Reconcile(src KeyedSources) (*entities.ReconciledTable, error) {
	if src.Dispensed2M == nil || src.Dispensed6M == nil || src.ProductsOnHand == nil || src.MedsOnHand == nil {
		return nil, fmt.Errorf("reconcile requires all four keyed sources")
	}

	table := entities.NewReconciledTable(src.Dispensed2M.Len() + src.Dispensed6M.Len())

	// Outer join of the dispensed windows
	for _, row := range src.Dispensed2M.Rows {
		table.AddRow(entities.ReconciledRow{
			Product:               row.Product,
			TotalUnitsPast2Months: row.Quantity,
		})
	}
	for _, row := range src.Dispensed6M.Rows {
		if existing, ok := table.Row(row.Product); ok {
			existing.TotalUnitsPast6Months = row.Quantity
			continue
		}
		table.AddRow(entities.ReconciledRow{
			Product:               row.Product,
			TotalUnitsPast6Months: row.Quantity,
		})
	}

	r.recordFeed(table, src.Dispensed2M)
	r.recordFeed(table, src.Dispensed6M)

	// on_hand exists only when both inventory sources carry their column
	productsFeed := r.recordFeed(table, src.ProductsOnHand)
	medsFeed := r.recordFeed(table, src.MedsOnHand)
	table.Columns[entities.ColumnOnHand] = productsFeed && medsFeed

	for i := range table.Rows {
		row := &table.Rows[i]
		row.OnHand = firstNonNull(
			lookupQuantity(src.ProductsOnHand, row.Product),
			lookupQuantity(src.MedsOnHand, row.Product),
		)
	}

	table.SortByProduct()
	return table, nil
}

// recordFeed marks the source's output column present or records it missing
func (r *Reconciler) recordFeed(table *entities.ReconciledTable, src *entities.KeyedSource) bool {
	col := src.Kind.OutputColumn()
	if !src.HasQuantity {
		table.MissingFeeds = append(table.MissingFeeds, entities.MissingColumn{
			Column:       col,
			Source:       src.Kind,
			SourceColumn: src.QuantityColumn,
		})
		return false
	}
	table.Columns[col] = true
	return true
}

// RequireColumns returns a *entities.MissingColumnsError naming every
// required column the joins did not produce
func RequireColumns(table *entities.ReconciledTable, required []string) error {
	var missing []entities.MissingColumn
	for _, col := range required {
		if table.Columns[col] {
			continue
		}
		found := false
		for _, feed := range table.MissingFeeds {
			if feed.Column == col {
				missing = append(missing, feed)
				found = true
			}
		}
		if !found {
			missing = append(missing, entities.MissingColumn{Column: col})
		}
	}

	if len(missing) > 0 {
		return &entities.MissingColumnsError{Missing: missing}
	}
	return nil
}

func lookupQuantity(src *entities.KeyedSource, product entities.ProductKey) decimal.NullDecimal {
	if !src.HasQuantity {
		return decimal.NullDecimal{}
	}
	row, ok := src.Lookup(product)
	if !ok {
		return decimal.NullDecimal{}
	}
	return row.Quantity
}

// firstNonNull returns the first valid value
func firstNonNull(vals ...decimal.NullDecimal) decimal.NullDecimal {
	for _, v := range vals {
		if v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}
