package entities

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewSession_Validation(t *testing.T) {
	for _, months := range []int{0, -1, 13} {
		_, err := NewSession(months, nil)
		if !errors.Is(err, ErrInvalidTargetMonths) {
			t.Errorf("Expected ErrInvalidTargetMonths for %d, got %v", months, err)
		}
	}

	for _, months := range []int{1, 6, 12} {
		if _, err := NewSession(months, nil); err != nil {
			t.Errorf("Expected %d months to be valid, got %v", months, err)
		}
	}
}

func TestSession_OverridesAreCopied(t *testing.T) {
	overrides := map[ProductKey]decimal.Decimal{"A": decimal.NewFromInt(10)}
	session, err := NewSession(2, overrides)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	overrides["A"] = decimal.NewFromInt(99)
	overrides["B"] = decimal.NewFromInt(1)

	got := session.Override("A")
	if !got.Valid || !got.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected override 10, got %v", got)
	}
	if session.Override("B").Valid {
		t.Error("Expected later map edits not to leak into the session")
	}
}

func TestMissingColumnsError_Columns(t *testing.T) {
	err := &MissingColumnsError{Missing: []MissingColumn{
		{Column: ColumnOnHand, Source: ProductsOnHand, SourceColumn: "on_hand"},
		{Column: ColumnOnHand, Source: MedsOnHand, SourceColumn: "containers"},
		{Column: ColumnTotalUnits2M, Source: DispensedPast2Months, SourceColumn: "containers"},
	}}

	cols := err.Columns()
	if len(cols) != 2 || cols[0] != ColumnOnHand || cols[1] != ColumnTotalUnits2M {
		t.Errorf("Expected [on_hand total_units_past_2_months], got %v", cols)
	}

	expected := "missing required columns for calculation: on_hand (products_on_hand: on_hand), on_hand (meds_on_hand: containers), total_units_past_2_months (dispensed_past_2_months: containers)"
	if err.Error() != expected {
		t.Errorf("Expected error '%s', got '%s'", expected, err.Error())
	}
}

func TestMissingInputError(t *testing.T) {
	err := &MissingInputError{Sources: []SourceKind{ProductsOnHand, DispensedPast6Months}}
	expected := "missing input files: products_on_hand, dispensed_past_6_months"
	if err.Error() != expected {
		t.Errorf("Expected error '%s', got '%s'", expected, err.Error())
	}
}
