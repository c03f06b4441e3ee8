package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTargetMonths is returned when the coverage window is outside 1..12
var ErrInvalidTargetMonths = errors.New("target months must be between 1 and 12")

// MissingInputError means not all four source files were supplied
type MissingInputError struct {
	Sources []SourceKind
}

func (e *MissingInputError) Error() string {
	names := make([]string, len(e.Sources))
	for i, s := range e.Sources {
		names[i] = s.String()
	}
	return fmt.Sprintf("missing input files: %s", strings.Join(names, ", "))
}

// MissingColumn names a reconciled column and the source column that feeds it.
// SourceColumn is empty when no source feeds the column.
type MissingColumn struct {
	Column       string
	Source       SourceKind
	SourceColumn string
}

// MissingColumnsError aborts a run before any quantity is calculated
type MissingColumnsError struct {
	Missing []MissingColumn
}

// Columns returns the missing reconciled column names, deduplicated in order
func (e *MissingColumnsError) Columns() []string {
	seen := make(map[string]bool, len(e.Missing))
	var cols []string
	for _, m := range e.Missing {
		if seen[m.Column] {
			continue
		}
		seen[m.Column] = true
		cols = append(cols, m.Column)
	}
	return cols
}

func (e *MissingColumnsError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		if m.SourceColumn == "" {
			parts[i] = m.Column
			continue
		}
		parts[i] = fmt.Sprintf("%s (%s: %s)", m.Column, m.Source, m.SourceColumn)
	}
	return fmt.Sprintf("missing required columns for calculation: %s", strings.Join(parts, ", "))
}

// DuplicateKeyError reports one product key appearing on several rows of a source
type DuplicateKeyError struct {
	Source  SourceKind
	Product ProductKey
	Rows    []int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: duplicate product %q on rows %v", e.Source, e.Product, e.Rows)
}

// DuplicateKeysError collects every duplicated product key of one source.
// errors.As finds each *DuplicateKeyError through Unwrap.
type DuplicateKeysError struct {
	Source     SourceKind
	Duplicates []DuplicateKeyError
}

func (e *DuplicateKeysError) Error() string {
	parts := make([]string, len(e.Duplicates))
	for i, d := range e.Duplicates {
		parts[i] = fmt.Sprintf("%q on rows %v", d.Product, d.Rows)
	}
	return fmt.Sprintf("%s: %d duplicate products: %s", e.Source, len(e.Duplicates), strings.Join(parts, ", "))
}

func (e *DuplicateKeysError) Unwrap() []error {
	errs := make([]error, len(e.Duplicates))
	for i := range e.Duplicates {
		errs[i] = &e.Duplicates[i]
	}
	return errs
}

// InvalidQuantityError reports a quantity cell that is not a number
type InvalidQuantityError struct {
	Source SourceKind
	Row    int
	Column string
	Value  string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("%s row %d: invalid %s: %q", e.Source, e.Row, e.Column, e.Value)
}
