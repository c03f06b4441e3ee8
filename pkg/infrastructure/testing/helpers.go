package testing

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/vsinha/medorder/pkg/domain/entities"
)

// Raw headers as exported by the pharmacy system, before normalization
var (
	MedsOnHandHeaders     = []string{"Generic Name", "Description", "Package Qty", "Form", "Containers"}
	ProductsOnHandHeaders = []string{"Brand", "Description", "Package Qty", "Units", "On Hand"}
	DispensedHeaders      = []string{"Generic Name", "Qty X Form", "Package Qty", "Form", "Containers"}
)

// Product keys of the pharmacy scenario
const (
	AmoxicillinKey entities.ProductKey = "Amoxicillin 250mg 20 (capsule)"
	CarprofenKey   entities.ProductKey = "Carprofen 75mg 60 (tablet)"
	CephalexinKey  entities.ProductKey = "Cephalexin 500mg 30 (capsule)"
	GabapentinKey  entities.ProductKey = "Gabapentin 100mg 50 (capsule)"
	IbuprofenKey   entities.ProductKey = "Ibuprofen 200mg 100 (tablet)"
)

// NewTable builds a raw table from a header and positional records
func NewTable(source entities.SourceKind, headers []string, records ...[]string) *entities.Table {
	rows := make([]entities.RawRow, 0, len(records))
	for _, rec := range records {
		row := make(entities.RawRow, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return &entities.Table{
		Source:  source,
		Headers: append([]string(nil), headers...),
		Rows:    rows,
	}
}

// BuildPharmacyTestData builds a four-source scenario covering every join case:
//   - Ibuprofen: in all sources except products on hand (meds on-hand fallback)
//   - Amoxicillin: on hand in both inventories (products value wins)
//   - Carprofen: 2-month history only, products on-hand blank
//   - Gabapentin: 6-month history only, no inventory row
//   - Cephalexin: meds on hand only (unmatched)
func BuildPharmacyTestData() map[entities.SourceKind]*entities.Table {
	return map[entities.SourceKind]*entities.Table{
		entities.MedsOnHand: NewTable(entities.MedsOnHand, MedsOnHandHeaders,
			[]string{"Ibuprofen", "1 x 200mg", "100", "Tablet", "50"},
			[]string{"Amoxicillin", "250mg", "20", "Capsule", "4"},
			[]string{"Cephalexin", "1 x 500mg", "30", "Capsule", "12"},
		),
		entities.ProductsOnHand: NewTable(entities.ProductsOnHand, ProductsOnHandHeaders,
			[]string{"Amoxicillin", "250mg", "20", "capsule", "10"},
			[]string{"Carprofen", "75mg", "60", "Tablet", ""},
		),
		entities.DispensedPast2Months: NewTable(entities.DispensedPast2Months, DispensedHeaders,
			[]string{"Ibuprofen", "1 x 200mg", "100", "Tablet", "80"},
			[]string{"Amoxicillin", "250mg", "20", "Capsule", "6"},
			[]string{"Carprofen", "75mg", "60", "tablet", "5"},
		),
		entities.DispensedPast6Months: NewTable(entities.DispensedPast6Months, DispensedHeaders,
			[]string{"Ibuprofen", "200mg", "100", "Tablet", "90"},
			[]string{"Amoxicillin", "250mg", "20", "Capsule", "24"},
			[]string{"Gabapentin", "100mg", "50", "Capsule", "12"},
		),
	}
}

// CanonicalFileNames maps each source to its file name inside an input directory
var CanonicalFileNames = map[entities.SourceKind]string{
	entities.MedsOnHand:           "meds_on_hand.csv",
	entities.ProductsOnHand:       "products_on_hand.csv",
	entities.DispensedPast2Months: "dispensed_past_2_months.csv",
	entities.DispensedPast6Months: "dispensed_past_6_months.csv",
}

// WriteCSV writes a header and records to path
func WriteCSV(path string, headers []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(headers); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}

// WriteScenarioDir writes tables into dir using the canonical file names
func WriteScenarioDir(dir string, tables map[entities.SourceKind]*entities.Table) error {
	for kind, table := range tables {
		records := make([][]string, len(table.Rows))
		for i, row := range table.Rows {
			rec := make([]string, len(table.Headers))
			for j, h := range table.Headers {
				rec[j] = row[h]
			}
			records[i] = rec
		}
		if err := WriteCSV(filepath.Join(dir, CanonicalFileNames[kind]), table.Headers, records); err != nil {
			return err
		}
	}
	return nil
}
