package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/application/services"
	"github.com/vsinha/medorder/pkg/domain/entities"
	domainservices "github.com/vsinha/medorder/pkg/domain/services"
	"github.com/vsinha/medorder/pkg/infrastructure/logging"
	"github.com/vsinha/medorder/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()

	// Source tables as a pharmacy export would produce them
	tables := services.SourceTables{
		entities.MedsOnHand: newTable(entities.MedsOnHand,
			[]string{"Generic Name", "Description", "Package Qty", "Form", "Containers"},
			[]string{"Meloxicam", "1 x 1.5mg/ml", "32", "Suspension", "3"},
			[]string{"Gabapentin", "100mg", "50", "Capsule", "2"},
			[]string{"Prednisone", "5mg", "100", "Tablet", "6"},
		),
		entities.ProductsOnHand: newTable(entities.ProductsOnHand,
			[]string{"Brand", "Description", "Package Qty", "Units", "On Hand"},
			[]string{"Gabapentin", "100mg", "50", "capsule", "5"},
		),
		entities.DispensedPast2Months: newTable(entities.DispensedPast2Months,
			[]string{"Generic Name", "Qty X Form", "Package Qty", "Form", "Containers"},
			[]string{"Meloxicam", "1 x 1.5mg/ml", "32", "Suspension", "7"},
			[]string{"Gabapentin", "100mg", "50", "Capsule", "4"},
		),
		entities.DispensedPast6Months: newTable(entities.DispensedPast6Months,
			[]string{"Generic Name", "Qty X Form", "Package Qty", "Form", "Containers"},
			[]string{"Meloxicam", "1.5mg/ml", "32", "Suspension", "15"},
			[]string{"Gabapentin", "100mg", "50", "Capsule", "30"},
		),
	}

	// Overrides live in a repository between reruns
	store := memory.NewOverrideRepository()
	defer store.Close()
	_ = store.SetOverride(ctx, "Meloxicam 1.5mg/ml 32 (suspension)", decimal.NewFromInt(12))

	service := services.NewOrderService(
		services.ServiceConfig{DuplicatePolicy: domainservices.RejectDuplicates},
		logging.GetLogger(),
		nil,
	)

	for _, months := range []int{2, 4} {
		overrides, err := store.GetAllOverrides(ctx)
		if err != nil {
			fmt.Printf("❌ Failed to read overrides: %v\n", err)
			return
		}
		session, err := entities.NewSession(months, overrides)
		if err != nil {
			fmt.Printf("❌ Invalid session: %v\n", err)
			return
		}

		fmt.Printf("💊 Reorder plan covering %d months\n", months)
		result, err := service.Plan(ctx, tables, session)
		if err != nil {
			fmt.Printf("❌ Plan failed: %v\n", err)
			return
		}

		for _, row := range result.Rows {
			note := ""
			if row.TargetQtyOnHandOverride.Valid {
				note = fmt.Sprintf(" (override %s)", row.TargetQtyOnHandOverride.Decimal)
			}
			fmt.Printf("  %-40s order %s%s\n", row.Product, row.QtyToOrder.Round(2), note)
		}
		for _, u := range result.Unmatched {
			fmt.Printf("  ⚠️  %s has stock but no dispensing history\n", u.Product)
		}
		fmt.Println()
	}
}

func newTable(kind entities.SourceKind, headers []string, records ...[]string) *entities.Table {
	table := &entities.Table{Source: kind, Headers: headers}
	for _, rec := range records {
		row := make(entities.RawRow, len(headers))
		for i, h := range headers {
			row[h] = rec[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
