package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/domain/entities"
)

// DuplicatePolicy decides what happens when a product key repeats within one source
type DuplicatePolicy int

const (
	// RejectDuplicates fails the run when any key repeats
	RejectDuplicates DuplicatePolicy = iota
	// SumDuplicates aggregates the quantities of repeated keys
	SumDuplicates
)

// String method for DuplicatePolicy enum
func (p DuplicatePolicy) String() string {
	switch p {
	case RejectDuplicates:
		return "reject"
	case SumDuplicates:
		return "sum"
	default:
		return "unknown"
	}
}

// ParseDuplicatePolicy resolves a policy name
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "reject", "":
		return RejectDuplicates, nil
	case "sum":
		return SumDuplicates, nil
	default:
		return RejectDuplicates, fmt.Errorf("invalid duplicate policy: %s (expected: reject or sum)", s)
	}
}

// KeyValidator keys source tables and checks product key uniqueness
type KeyValidator struct {
	policy DuplicatePolicy
}

// NewKeyValidator creates a new key validator
func NewKeyValidator(policy DuplicatePolicy) *KeyValidator {
	return &KeyValidator{policy: policy}
}

// FindDuplicates reports every product key that appears on more than one
// row, in order of first appearance
func (v *KeyValidator) FindDuplicates(table *entities.Table, spec entities.SourceSpec) []entities.DuplicateKeyError {
	rowsByKey := make(map[entities.ProductKey][]int)
	var order []entities.ProductKey
	for i, row := range table.Rows {
		key := BuildProductKey(row, spec.Roles, spec.IgnorePrefix)
		if _, seen := rowsByKey[key]; !seen {
			order = append(order, key)
		}
		rowsByKey[key] = append(rowsByKey[key], i+1)
	}

	var duplicates []entities.DuplicateKeyError
	for _, key := range order {
		if rows := rowsByKey[key]; len(rows) > 1 {
			duplicates = append(duplicates, entities.DuplicateKeyError{Source: table.Source, Product: key, Rows: rows})
		}
	}
	return duplicates
}

// KeySource reduces a normalized table to one quantity per product key.
// Under RejectDuplicates any repeated key returns a *entities.DuplicateKeysError
// naming all of them; under SumDuplicates the non-null quantities of repeated
// keys are added.
func (v *KeyValidator) KeySource(table *entities.Table, spec entities.SourceSpec) (*entities.KeyedSource, error) {
	if v.policy == RejectDuplicates {
		if duplicates := v.FindDuplicates(table, spec); len(duplicates) > 0 {
			return nil, &entities.DuplicateKeysError{Source: table.Source, Duplicates: duplicates}
		}
	}

	hasQuantity := table.HasColumn(spec.QuantityColumn)
	keyed := entities.NewKeyedSource(table.Source, spec.QuantityColumn, hasQuantity)

	for i, row := range table.Rows {
		rowNum := i + 1
		key := BuildProductKey(row, spec.Roles, spec.IgnorePrefix)

		var qty decimal.NullDecimal
		if hasQuantity {
			raw := row[spec.QuantityColumn]
			parsed, err := entities.ParseQuantity(raw)
			if err != nil {
				return nil, &entities.InvalidQuantityError{
					Source: table.Source,
					Row:    rowNum,
					Column: spec.QuantityColumn,
					Value:  raw,
				}
			}
			qty = parsed
		}

		existing, found := keyed.Lookup(key)
		if !found {
			keyed.Add(entities.KeyedRow{Product: key, Quantity: qty, Rows: []int{rowNum}})
			continue
		}

		existing.Rows = append(existing.Rows, rowNum)
		existing.Quantity = addNullable(existing.Quantity, qty)
	}

	return keyed, nil
}

// addNullable adds two nullable quantities; null only when both are null
func addNullable(a, b decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	default:
		return decimal.NewNullDecimal(a.Decimal.Add(b.Decimal))
	}
}
