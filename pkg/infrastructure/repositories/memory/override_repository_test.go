package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/domain/entities"
)

func TestOverrideRepository_SetGetClear(t *testing.T) {
	ctx := context.Background()
	repo := NewOverrideRepository()
	product := entities.ProductKey("Ibuprofen 200mg 100 (tablet)")

	got, err := repo.GetOverride(ctx, product)
	if err != nil {
		t.Fatalf("Failed to get override: %v", err)
	}
	if got.Valid {
		t.Error("Expected no override before set")
	}

	if err := repo.SetOverride(ctx, product, decimal.NewFromInt(40)); err != nil {
		t.Fatalf("Failed to set override: %v", err)
	}
	got, _ = repo.GetOverride(ctx, product)
	if !got.Valid || !got.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected override 40, got %v", got)
	}

	if err := repo.SetOverride(ctx, product, decimal.NewFromInt(25)); err != nil {
		t.Fatalf("Failed to replace override: %v", err)
	}
	got, _ = repo.GetOverride(ctx, product)
	if !got.Decimal.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected replaced override 25, got %s", got.Decimal)
	}

	if err := repo.ClearOverride(ctx, product); err != nil {
		t.Fatalf("Failed to clear override: %v", err)
	}
	got, _ = repo.GetOverride(ctx, product)
	if got.Valid {
		t.Error("Expected override to be cleared")
	}

	// clearing an absent key is not an error
	if err := repo.ClearOverride(ctx, "absent"); err != nil {
		t.Errorf("Expected clearing an absent override to succeed, got %v", err)
	}
}

func TestOverrideRepository_GetAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewOverrideRepository()
	_ = repo.LoadOverrides(map[entities.ProductKey]decimal.Decimal{
		"A": decimal.NewFromInt(1),
		"B": decimal.NewFromInt(2),
	})

	all, err := repo.GetAllOverrides(ctx)
	if err != nil {
		t.Fatalf("Failed to get overrides: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 overrides, got %d", len(all))
	}

	delete(all, "A")
	again, _ := repo.GetAllOverrides(ctx)
	if len(again) != 2 {
		t.Errorf("Expected repository to be unaffected by caller edits, got %d", len(again))
	}
}
