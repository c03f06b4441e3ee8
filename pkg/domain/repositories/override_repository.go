package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/domain/entities"
)

// OverrideRepository provides access to the operator's per-product target
// quantity overrides
type OverrideRepository interface {
	GetOverride(ctx context.Context, product entities.ProductKey) (decimal.NullDecimal, error)
	GetAllOverrides(ctx context.Context) (map[entities.ProductKey]decimal.Decimal, error)
	SetOverride(ctx context.Context, product entities.ProductKey, target decimal.Decimal) error
	ClearOverride(ctx context.Context, product entities.ProductKey) error
	Close() error
}
