package commands

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/medorder/pkg/domain/entities"
	"github.com/vsinha/medorder/pkg/infrastructure/events"
	"github.com/vsinha/medorder/pkg/infrastructure/repositories/sqlite"
	testhelpers "github.com/vsinha/medorder/pkg/infrastructure/testing"
	"github.com/vsinha/medorder/pkg/interfaces/cli/output"
)

func scenarioDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := testhelpers.WriteScenarioDir(dir, testhelpers.BuildPharmacyTestData()); err != nil {
		t.Fatalf("Failed to write scenario: %v", err)
	}
	return dir
}

func baseConfig(inputDir string) Config {
	return Config{
		InputDir:     inputDir,
		TargetMonths: 2,
		Duplicates:   "reject",
		Format:       "text",
		Stdout:       &bytes.Buffer{},
	}
}

func readOrders(t *testing.T, dir string) map[string][]string {
	t.Helper()
	file, err := os.Open(filepath.Join(dir, output.OrdersFileName))
	if err != nil {
		t.Fatalf("Failed to open orders file: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read orders file: %v", err)
	}
	rows := make(map[string][]string, len(records))
	for _, rec := range records[1:] {
		rows[rec[0]] = rec
	}
	return rows
}

func TestOrderCommand_CSVOutput(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "results")
	config := baseConfig(scenarioDir(t))
	config.Format = "csv"
	config.OutputDir = outDir
	config.MetricsFile = filepath.Join(outDir, "medorder.prom")

	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatalf("Failed to create output dir: %v", err)
	}

	if err := NewOrderCommand(config).Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rows := readOrders(t, outDir)
	expected := map[entities.ProductKey]string{
		testhelpers.AmoxicillinKey: "0",
		testhelpers.CarprofenKey:   "5",
		testhelpers.GabapentinKey:  "4",
		testhelpers.IbuprofenKey:   "30",
	}
	if len(rows) != len(expected) {
		t.Fatalf("Expected %d rows, got %d", len(expected), len(rows))
	}
	for product, qty := range expected {
		rec, ok := rows[string(product)]
		if !ok {
			t.Errorf("Expected row for %s", product)
			continue
		}
		if rec[1] != qty {
			t.Errorf("%s: expected qty_to_order %s, got %s", product, qty, rec[1])
		}
	}

	unmatched, err := os.ReadFile(filepath.Join(outDir, output.UnmatchedFileName))
	if err != nil {
		t.Fatalf("Failed to read unmatched file: %v", err)
	}
	if !strings.Contains(string(unmatched), string(testhelpers.CephalexinKey)) {
		t.Errorf("Expected Cephalexin in unmatched report, got %q", string(unmatched))
	}

	prom, err := os.ReadFile(config.MetricsFile)
	if err != nil {
		t.Fatalf("Failed to read metrics file: %v", err)
	}
	if !strings.Contains(string(prom), "medorder_products_to_order 3") {
		t.Errorf("Expected products to order gauge in metrics file, got:\n%s", prom)
	}
}

func TestOrderCommand_OverridesPersist(t *testing.T) {
	inputDir := scenarioDir(t)
	outDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "overrides.db")

	overridesFile := filepath.Join(t.TempDir(), "overrides.csv")
	err := testhelpers.WriteCSV(overridesFile,
		[]string{"Product", "Target Qty On Hand Override"},
		[][]string{
			{string(testhelpers.AmoxicillinKey), "40"},
			{string(testhelpers.CarprofenKey), "100"},
		})
	if err != nil {
		t.Fatalf("Failed to write overrides: %v", err)
	}

	config := baseConfig(inputDir)
	config.Format = "csv"
	config.OutputDir = outDir
	config.OverrideDB = dbPath
	config.OverridesFile = overridesFile
	// flags win over the file
	config.SetOverrides = []string{string(testhelpers.CarprofenKey) + "=7"}

	if err := NewOrderCommand(config).Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rows := readOrders(t, outDir)
	if rows[string(testhelpers.AmoxicillinKey)][1] != "30" {
		t.Errorf("Expected Amoxicillin 40 - 10 = 30, got %s", rows[string(testhelpers.AmoxicillinKey)][1])
	}
	if rows[string(testhelpers.CarprofenKey)][1] != "7" {
		t.Errorf("Expected Carprofen flag override 7, got %s", rows[string(testhelpers.CarprofenKey)][1])
	}

	// second run reads the stored overrides and clears one
	config = baseConfig(inputDir)
	config.Format = "csv"
	config.OutputDir = outDir
	config.OverrideDB = dbPath
	config.ClearOverrides = []string{string(testhelpers.CarprofenKey)}

	if err := NewOrderCommand(config).Execute(context.Background()); err != nil {
		t.Fatalf("Second execute failed: %v", err)
	}

	rows = readOrders(t, outDir)
	if rows[string(testhelpers.AmoxicillinKey)][5] != "40" {
		t.Errorf("Expected stored Amoxicillin override 40, got %q", rows[string(testhelpers.AmoxicillinKey)][5])
	}
	if rows[string(testhelpers.CarprofenKey)][5] != "" {
		t.Errorf("Expected Carprofen override cleared, got %q", rows[string(testhelpers.CarprofenKey)][5])
	}

	store, err := sqlite.NewOverrideRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	all, err := store.GetAllOverrides(context.Background())
	if err != nil {
		t.Fatalf("Failed to list overrides: %v", err)
	}
	if len(all) != 1 || !all[testhelpers.AmoxicillinKey].Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected only Amoxicillin=40 stored, got %v", all)
	}

	audit := store.AuditStore()
	carprofen, err := audit.ReadEvents(context.Background(), string(testhelpers.CarprofenKey), 1)
	if err != nil {
		t.Fatalf("Failed to read audit stream: %v", err)
	}
	if len(carprofen) != 2 || carprofen[0].Type != events.OverrideSetEvent || carprofen[1].Type != events.OverrideClearedEvent {
		t.Errorf("Expected Carprofen set then cleared, got %v", carprofen)
	}
	if len(carprofen) == 2 && carprofen[0].RunID == carprofen[1].RunID {
		t.Errorf("Expected the two changes under different runs, got %s twice", carprofen[0].RunID)
	}
	// the second run left Amoxicillin unchanged
	if amox, _ := audit.ReadEvents(context.Background(), string(testhelpers.AmoxicillinKey), 1); len(amox) != 1 {
		t.Errorf("Expected only the first run's Amoxicillin event, got %v", amox)
	}
}

func TestOrderCommand_FailedRunKeepsStore(t *testing.T) {
	dir := scenarioDir(t)
	// products on hand without its quantity column
	err := testhelpers.WriteCSV(filepath.Join(dir, CanonicalFileNames[entities.ProductsOnHand]),
		[]string{"Brand", "Description", "Package Qty", "Units"},
		[][]string{{"Ibuprofen", "200mg", "100", "tablet"}})
	if err != nil {
		t.Fatalf("Failed to write products file: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "overrides.db")
	config := baseConfig(dir)
	config.OverrideDB = dbPath
	config.SetOverrides = []string{string(testhelpers.AmoxicillinKey) + "=40"}

	err = NewOrderCommand(config).Execute(context.Background())
	var missing *entities.MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingColumnsError, got %v", err)
	}

	store, err := sqlite.NewOverrideRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	if all, _ := store.GetAllOverrides(context.Background()); len(all) != 0 {
		t.Errorf("Expected no overrides saved by a failed run, got %v", all)
	}
	if trail, _ := store.AuditStore().ReadAllEvents(context.Background(), 0); len(trail) != 0 {
		t.Errorf("Expected no audit events from a failed run, got %v", trail)
	}
}

func TestOrderCommand_ShowAudit(t *testing.T) {
	inputDir := scenarioDir(t)
	dbPath := filepath.Join(t.TempDir(), "overrides.db")

	config := baseConfig(inputDir)
	config.OverrideDB = dbPath
	config.SetOverrides = []string{string(testhelpers.AmoxicillinKey) + "=40"}
	if err := NewOrderCommand(config).Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var buf bytes.Buffer
	show := baseConfig("")
	show.OverrideDB = dbPath
	show.ShowAudit = true
	show.Format = "json"
	show.Stdout = &buf
	if err := NewOrderCommand(show).Execute(context.Background()); err != nil {
		t.Fatalf("Show audit failed: %v", err)
	}

	var trail []events.Event
	if err := json.Unmarshal(buf.Bytes(), &trail); err != nil {
		t.Fatalf("Expected JSON audit trail, got %q: %v", buf.String(), err)
	}
	if len(trail) != 2 {
		t.Fatalf("Expected set and run events, got %d", len(trail))
	}
	if trail[0].Type != events.OverrideSetEvent || trail[0].Stream != string(testhelpers.AmoxicillinKey) {
		t.Errorf("Expected Amoxicillin override.set first, got %s on %s", trail[0].Type, trail[0].Stream)
	}
	if trail[1].Type != events.OrdersCalculatedEvent || trail[1].RunID != trail[0].RunID {
		t.Errorf("Expected orders.calculated from the same run, got %s run %s", trail[1].Type, trail[1].RunID)
	}

	buf.Reset()
	show.Format = "text"
	show.AuditStream = string(testhelpers.AmoxicillinKey)
	if err := NewOrderCommand(show).Execute(context.Background()); err != nil {
		t.Fatalf("Show audit stream failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "(1 events)") || !strings.Contains(out, events.OverrideSetEvent) {
		t.Errorf("Expected one override.set line, got:\n%s", out)
	}
}

func TestOrderCommand_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	config := baseConfig(scenarioDir(t))
	config.Stdout = &buf
	config.TargetMonths = 6

	if err := NewOrderCommand(config).Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Target Months: 6") {
		t.Errorf("Expected target months in summary, got:\n%s", out)
	}
	if !strings.Contains(out, string(testhelpers.CephalexinKey)) {
		t.Errorf("Expected unmatched section, got:\n%s", out)
	}
}

func TestOrderCommand_MissingInputs(t *testing.T) {
	dir := scenarioDir(t)
	if err := os.Remove(filepath.Join(dir, CanonicalFileNames[entities.DispensedPast6Months])); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}

	err := NewOrderCommand(baseConfig(dir)).Execute(context.Background())

	var missing *entities.MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingInputError, got %v", err)
	}
	if len(missing.Sources) != 1 || missing.Sources[0] != entities.DispensedPast6Months {
		t.Errorf("Expected dispensed_past_6_months missing, got %v", missing.Sources)
	}

	err = NewOrderCommand(baseConfig("")).Execute(context.Background())
	if !errors.As(err, &missing) || len(missing.Sources) != 4 {
		t.Errorf("Expected all four sources missing, got %v", err)
	}
}

func TestOrderCommand_ExplicitFilesWin(t *testing.T) {
	dir := scenarioDir(t)
	other := t.TempDir()
	meds := filepath.Join(other, "meds.csv")
	err := testhelpers.WriteCSV(meds, testhelpers.MedsOnHandHeaders, [][]string{
		{"Ibuprofen", "200mg", "100", "Tablet", "100"},
	})
	if err != nil {
		t.Fatalf("Failed to write meds file: %v", err)
	}

	outDir := t.TempDir()
	config := baseConfig(dir)
	config.MedsOnHandFile = meds
	config.Format = "csv"
	config.OutputDir = outDir

	if err := NewOrderCommand(config).Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rows := readOrders(t, outDir)
	if rows[string(testhelpers.IbuprofenKey)][1] != "0" {
		t.Errorf("Expected Ibuprofen covered by explicit meds file, got %s", rows[string(testhelpers.IbuprofenKey)][1])
	}
}

func TestOrderCommand_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		errText string
	}{
		{"months too low", func(c *Config) { c.TargetMonths = 0 }, "TargetMonths: min=1"},
		{"months too high", func(c *Config) { c.TargetMonths = 13 }, "TargetMonths: max=12"},
		{"bad format", func(c *Config) { c.Format = "pdf" }, "Format: oneof"},
		{"bad duplicates", func(c *Config) { c.Duplicates = "merge" }, "Duplicates: oneof"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LogLevel: oneof"},
		{"csv without output", func(c *Config) { c.Format = "csv" }, "-output directory required"},
		{"bad set override", func(c *Config) { c.SetOverrides = []string{"no-quantity"} }, "expected KEY=QTY"},
		{"negative override", func(c *Config) { c.SetOverrides = []string{"A=-3"} }, "cannot be negative"},
		{"audit without db", func(c *Config) { c.ShowAudit = true }, "-show-audit requires -override-db"},
		{"stream without show", func(c *Config) { c.AuditStream = "A" }, "-audit-stream requires -show-audit"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := baseConfig(scenarioDir(t))
			tc.mutate(&config)

			err := NewOrderCommand(config).Execute(context.Background())
			if err == nil || !strings.Contains(err.Error(), tc.errText) {
				t.Errorf("Expected error containing %q, got %v", tc.errText, err)
			}
		})
	}
}

func TestOrderCommand_ParseOverrideFlags(t *testing.T) {
	config := baseConfig("")
	config.SetOverrides = []string{"Drops 1=2 10 (ml)=15", "B=", "C=4"}
	config.ClearOverrides = []string{"C"}

	edits, err := NewOrderCommand(config).parseOverrideFlags()
	if err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	if !edits.set["Drops 1=2 10 (ml)"].Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected key containing '=' to split on the last one, got %v", edits.set)
	}
	if _, ok := edits.set["C"]; ok {
		t.Error("Expected -clear-override to remove C")
	}
	if len(edits.clear) != 2 || edits.clear[0] != "B" || edits.clear[1] != "C" {
		t.Errorf("Expected clears [B C], got %v", edits.clear)
	}
}

func TestOrderCommand_Help(t *testing.T) {
	var buf bytes.Buffer
	config := Config{Help: true, Stdout: &buf}

	if err := NewOrderCommand(config).Execute(context.Background()); err != nil {
		t.Fatalf("Help failed: %v", err)
	}
	if !strings.Contains(buf.String(), "-target-months") {
		t.Error("Expected help to list flags")
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv(EnvTargetMonths, "4")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvInputDir, "/data/inputs")
	t.Setenv(EnvLogLevel, "debug")

	config, err := DefaultConfig()
	if err != nil {
		t.Fatalf("Failed to build default config: %v", err)
	}
	if config.TargetMonths != 4 || config.Format != "json" || config.InputDir != "/data/inputs" || config.LogLevel != "debug" {
		t.Errorf("Expected environment defaults, got %+v", config)
	}
	if config.Duplicates != "reject" {
		t.Errorf("Expected reject duplicates by default, got %s", config.Duplicates)
	}

	t.Setenv(EnvTargetMonths, "two")
	if _, err := DefaultConfig(); err == nil {
		t.Error("Expected error for non-numeric target months")
	}
}
