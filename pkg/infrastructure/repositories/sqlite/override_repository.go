package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/domain/entities"
	"github.com/vsinha/medorder/pkg/domain/repositories"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS overrides (
	product TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);`

// OverrideRepository persists the operator's override column between runs
type OverrideRepository struct {
	db *sql.DB
}

// Verify interface compliance
var _ repositories.OverrideRepository = (*OverrideRepository)(nil)

// NewOverrideRepository opens (creating if needed) the override database at path.
// Use ":memory:" for a throwaway store.
func NewOverrideRepository(path string) (*OverrideRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open override database %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	for _, ddl := range []string{schema, auditSchema} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate override database: %w", err)
		}
	}
	return &OverrideRepository{db: db}, nil
}

// GetOverride returns the override for product, null when none is stored
func (r *OverrideRepository) GetOverride(ctx context.Context, product entities.ProductKey) (decimal.NullDecimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT target FROM overrides WHERE product = ?`, string(product)).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("failed to get override for %s: %w", product, err)
	}

	target, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("corrupt override for %s: %w", product, err)
	}
	return decimal.NewNullDecimal(target), nil
}

// GetAllOverrides returns every stored override
func (r *OverrideRepository) GetAllOverrides(ctx context.Context) (map[entities.ProductKey]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT product, target FROM overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	result := make(map[entities.ProductKey]decimal.Decimal)
	for rows.Next() {
		var product, raw string
		if err := rows.Scan(&product, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		target, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt override for %s: %w", product, err)
		}
		result[entities.ProductKey(product)] = target
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	return result, nil
}

// SetOverride upserts target for product. Targets are stored as decimal text.
func (r *OverrideRepository) SetOverride(ctx context.Context, product entities.ProductKey, target decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO overrides (product, target) VALUES (?, ?)
		ON CONFLICT(product) DO UPDATE SET
			target = excluded.target,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		string(product), target.String())
	if err != nil {
		return fmt.Errorf("failed to set override for %s: %w", product, err)
	}
	return nil
}

// ClearOverride removes the override for product
func (r *OverrideRepository) ClearOverride(ctx context.Context, product entities.ProductKey) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM overrides WHERE product = ?`, string(product)); err != nil {
		return fmt.Errorf("failed to clear override for %s: %w", product, err)
	}
	return nil
}

// Close closes the database connection
func (r *OverrideRepository) Close() error {
	return r.db.Close()
}
