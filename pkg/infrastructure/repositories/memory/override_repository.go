package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/domain/entities"
	"github.com/vsinha/medorder/pkg/domain/repositories"
)

// OverrideRepository provides in-memory override storage for runs without a
// database
type OverrideRepository struct {
	mu        sync.RWMutex
	overrides map[entities.ProductKey]decimal.Decimal
}

// NewOverrideRepository creates a new in-memory override repository
func NewOverrideRepository() *OverrideRepository {
	return &OverrideRepository{
		overrides: make(map[entities.ProductKey]decimal.Decimal),
	}
}

// Verify interface compliance
var _ repositories.OverrideRepository = (*OverrideRepository)(nil)

// LoadOverrides loads overrides into the repository
func (r *OverrideRepository) LoadOverrides(overrides map[entities.ProductKey]decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for product, target := range overrides {
		r.overrides[product] = target
	}
	return nil
}

// GetOverride returns the override for product, null when none is stored
func (r *OverrideRepository) GetOverride(ctx context.Context, product entities.ProductKey) (decimal.NullDecimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	target, ok := r.overrides[product]
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(target), nil
}

// GetAllOverrides returns a copy of every stored override
func (r *OverrideRepository) GetAllOverrides(ctx context.Context) (map[entities.ProductKey]decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[entities.ProductKey]decimal.Decimal, len(r.overrides))
	for product, target := range r.overrides {
		result[product] = target
	}
	return result, nil
}

// SetOverride stores target for product, replacing any previous value
func (r *OverrideRepository) SetOverride(ctx context.Context, product entities.ProductKey, target decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[product] = target
	return nil
}

// ClearOverride removes the override for product
func (r *OverrideRepository) ClearOverride(ctx context.Context, product entities.ProductKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, product)
	return nil
}

// Close is a no-op
func (r *OverrideRepository) Close() error {
	return nil
}
