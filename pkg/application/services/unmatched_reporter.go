package services

import "github.com/vsinha/medorder/pkg/domain/entities"

// ReportUnmatched lists meds-on-hand products that have no row in the
// reconciled table, in meds-on-hand order. It never modifies either input.
func ReportUnmatched(meds *entities.KeyedSource, table *entities.ReconciledTable) []entities.UnmatchedProduct {
	unmatched := make([]entities.UnmatchedProduct, 0)
	if meds == nil {
		return unmatched
	}
	for _, row := range meds.Rows {
		if table.Contains(row.Product) {
			continue
		}
		unmatched = append(unmatched, entities.UnmatchedProduct{
			Product: row.Product,
			OnHand:  row.Quantity,
		})
	}
	return unmatched
}
