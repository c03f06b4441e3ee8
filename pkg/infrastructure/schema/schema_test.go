package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vsinha/medorder/pkg/domain/entities"
)

func TestParse_Empty(t *testing.T) {
	s, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Expected empty document to parse, got %v", err)
	}
	defaults := entities.DefaultSchema()
	for _, kind := range entities.AllSources {
		if s.Spec(kind) != defaults.Spec(kind) {
			t.Errorf("%s: expected default spec, got %+v", kind, s.Spec(kind))
		}
	}
}

func TestParse_OverridesNamedSources(t *testing.T) {
	doc := `
sources:
  dispensed_past_2_months:
    roles:
      description: Description
      package_qty: Package Qty
    quantity_column: Units Dispensed
    ignore_prefix: ""
  meds_on_hand:
    ignore_prefix: "2 x "
`
	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Failed to parse schema: %v", err)
	}

	d2 := s.Spec(entities.DispensedPast2Months)
	if d2.Roles.Description != "description" {
		t.Errorf("Expected normalized description role, got %q", d2.Roles.Description)
	}
	if d2.Roles.Name != "generic_name" || d2.Roles.Form != "form" {
		t.Errorf("Expected omitted roles to keep defaults, got %+v", d2.Roles)
	}
	if d2.QuantityColumn != "units_dispensed" {
		t.Errorf("Expected quantity column units_dispensed, got %q", d2.QuantityColumn)
	}
	if d2.IgnorePrefix != "" {
		t.Errorf("Expected explicit empty prefix to disable stripping, got %q", d2.IgnorePrefix)
	}

	if s.Spec(entities.MedsOnHand).IgnorePrefix != "2 x " {
		t.Errorf("Expected meds prefix override, got %q", s.Spec(entities.MedsOnHand).IgnorePrefix)
	}
	if s.Spec(entities.DispensedPast6Months) != entities.DefaultSchema().Spec(entities.DispensedPast6Months) {
		t.Error("Expected unlisted source to keep defaults")
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		doc     string
		errText string
	}{
		{"unknown source", "sources:\n  shelf_stock: {}\n", "unknown source: shelf_stock"},
		{"unknown field", "sources:\n  meds_on_hand:\n    qty: x\n", "field qty not found"},
		{"bad yaml", "sources: [", "failed to parse schema"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.errText) {
				t.Errorf("Expected error containing %q, got %v", tc.errText, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	doc := "sources:\n  products_on_hand:\n    roles:\n      form: Dose Form\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write schema: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load schema: %v", err)
	}
	if s.Spec(entities.ProductsOnHand).Roles.Form != "dose_form" {
		t.Errorf("Expected form role dose_form, got %q", s.Spec(entities.ProductsOnHand).Roles.Form)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for absent file")
	}
}
