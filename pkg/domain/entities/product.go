package entities

import "fmt"

// ProductKey is the derived identity string used to match the same physical
// product across the four source tables. Two rows denote the same product iff
// their keys are byte-equal.
type ProductKey string

// DefaultIgnorePrefix is stripped from descriptions before key composition
const DefaultIgnorePrefix = "1 x "

// SourceKind identifies one of the four fixed input tables
type SourceKind int

const (
	MedsOnHand SourceKind = iota
	ProductsOnHand
	DispensedPast2Months
	DispensedPast6Months
)

// AllSources lists the source kinds in load order
var AllSources = []SourceKind{MedsOnHand, ProductsOnHand, DispensedPast2Months, DispensedPast6Months}

// String method for SourceKind enum
func (s SourceKind) String() string {
	switch s {
	case MedsOnHand:
		return "meds_on_hand"
	case ProductsOnHand:
		return "products_on_hand"
	case DispensedPast2Months:
		return "dispensed_past_2_months"
	case DispensedPast6Months:
		return "dispensed_past_6_months"
	default:
		return "unknown"
	}
}

// ParseSourceKind resolves a source name as printed by String
func ParseSourceKind(name string) (SourceKind, error) {
	for _, s := range AllSources {
		if s.String() == name {
			return s, nil
		}
	}
	return MedsOnHand, fmt.Errorf("unknown source: %s (expected meds_on_hand, products_on_hand, dispensed_past_2_months or dispensed_past_6_months)", name)
}

// Reconciled column names
const (
	ColumnProduct        = "product"
	ColumnQtyToOrder     = "qty_to_order"
	ColumnTotalUnits2M   = "total_units_past_2_months"
	ColumnTotalUnits6M   = "total_units_past_6_months"
	ColumnOnHand         = "on_hand"
	ColumnTargetOverride = "target_qty_on_hand_override"
)

// OutputColumn returns the reconciled column a source's quantity feeds
func (s SourceKind) OutputColumn() string {
	switch s {
	case DispensedPast2Months:
		return ColumnTotalUnits2M
	case DispensedPast6Months:
		return ColumnTotalUnits6M
	default:
		return ColumnOnHand
	}
}

// ColumnRoles tells the key builder which physical column plays each
// semantic role for one source
type ColumnRoles struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	PackageQty  string `yaml:"package_qty"`
	Form        string `yaml:"form"`
}

// SourceSpec describes how a source table is keyed and which column carries
// its quantity
type SourceSpec struct {
	Kind           SourceKind
	Roles          ColumnRoles
	QuantityColumn string
	IgnorePrefix   string
}

// Validate checks that the spec names a quantity column and a name role
func (s SourceSpec) Validate() error {
	if s.QuantityColumn == "" {
		return fmt.Errorf("%s: quantity column cannot be empty", s.Kind)
	}
	if s.Roles.Name == "" {
		return fmt.Errorf("%s: name column cannot be empty", s.Kind)
	}
	return nil
}

// Schema is the column role configuration table for all four sources
type Schema map[SourceKind]SourceSpec

// DefaultSchema returns the canonical snake_case role mapping
func DefaultSchema() Schema {
	return Schema{
		MedsOnHand: {
			Kind:           MedsOnHand,
			Roles:          ColumnRoles{Name: "generic_name", Description: "description", PackageQty: "package_qty", Form: "form"},
			QuantityColumn: "containers",
			IgnorePrefix:   DefaultIgnorePrefix,
		},
		ProductsOnHand: {
			Kind:           ProductsOnHand,
			Roles:          ColumnRoles{Name: "brand", Description: "description", PackageQty: "package_qty", Form: "units"},
			QuantityColumn: "on_hand",
			IgnorePrefix:   DefaultIgnorePrefix,
		},
		DispensedPast2Months: {
			Kind:           DispensedPast2Months,
			Roles:          ColumnRoles{Name: "generic_name", Description: "qty_x_form", PackageQty: "package_qty", Form: "form"},
			QuantityColumn: "containers",
			IgnorePrefix:   DefaultIgnorePrefix,
		},
		DispensedPast6Months: {
			Kind:           DispensedPast6Months,
			Roles:          ColumnRoles{Name: "generic_name", Description: "qty_x_form", PackageQty: "package_qty", Form: "form"},
			QuantityColumn: "containers",
			IgnorePrefix:   DefaultIgnorePrefix,
		},
	}
}

// Spec returns the source spec for kind, falling back to the default
func (s Schema) Spec(kind SourceKind) SourceSpec {
	if spec, ok := s[kind]; ok {
		return spec
	}
	return DefaultSchema()[kind]
}

// Validate checks every source spec in the schema
func (s Schema) Validate() error {
	for _, kind := range AllSources {
		if err := s.Spec(kind).Validate(); err != nil {
			return err
		}
	}
	return nil
}
