package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/medorder/pkg/application/services"
	"github.com/vsinha/medorder/pkg/domain/entities"
	"github.com/vsinha/medorder/pkg/domain/repositories"
	domainservices "github.com/vsinha/medorder/pkg/domain/services"
	"github.com/vsinha/medorder/pkg/infrastructure/events"
	"github.com/vsinha/medorder/pkg/infrastructure/logging"
	"github.com/vsinha/medorder/pkg/infrastructure/metrics"
	"github.com/vsinha/medorder/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/medorder/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/medorder/pkg/infrastructure/repositories/sqlite"
	"github.com/vsinha/medorder/pkg/infrastructure/schema"
	"github.com/vsinha/medorder/pkg/interfaces/cli/output"
)

// Environment variables that supply flag defaults
const (
	EnvTargetMonths = "MEDORDER_TARGET_MONTHS"
	EnvInputDir     = "MEDORDER_INPUT_DIR"
	EnvOutputDir    = "MEDORDER_OUTPUT_DIR"
	EnvFormat       = "MEDORDER_FORMAT"
	EnvOverrideDB   = "MEDORDER_OVERRIDE_DB"
	EnvLogLevel     = "MEDORDER_LOG_LEVEL"
)

// CanonicalFileNames maps each source to its file name inside an input directory
var CanonicalFileNames = map[entities.SourceKind]string{
	entities.MedsOnHand:           "meds_on_hand.csv",
	entities.ProductsOnHand:       "products_on_hand.csv",
	entities.DispensedPast2Months: "dispensed_past_2_months.csv",
	entities.DispensedPast6Months: "dispensed_past_6_months.csv",
}

// Config holds configuration for the order command
type Config struct {
	InputDir           string
	MedsOnHandFile     string
	ProductsOnHandFile string
	Dispensed2MFile    string
	Dispensed6MFile    string
	TargetMonths       int `validate:"min=1,max=12"`
	OverridesFile      string
	SetOverrides       []string
	ClearOverrides     []string
	OverrideDB         string
	SchemaFile         string
	Duplicates         string `validate:"oneof=reject sum"`
	OutputDir          string
	Format             string `validate:"oneof=text json csv xlsx"`
	MetricsFile        string
	ShowAudit          bool
	AuditStream        string
	LogLevel           string `validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Verbose            bool
	Help               bool
	Stdout             io.Writer `validate:"-"`
}

// DefaultConfig returns the flag defaults, taken from the environment and a
// .env file in the working directory when present
func DefaultConfig() (Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	config := Config{
		InputDir:     os.Getenv(EnvInputDir),
		TargetMonths: entities.DefaultTargetMonths,
		OverrideDB:   os.Getenv(EnvOverrideDB),
		Duplicates:   domainservices.RejectDuplicates.String(),
		OutputDir:    os.Getenv(EnvOutputDir),
		Format:       "text",
		LogLevel:     os.Getenv(EnvLogLevel),
	}
	if format := os.Getenv(EnvFormat); format != "" {
		config.Format = format
	}
	if months := os.Getenv(EnvTargetMonths); months != "" {
		n, err := strconv.Atoi(months)
		if err != nil {
			return config, fmt.Errorf("invalid %s: %s", EnvTargetMonths, months)
		}
		config.TargetMonths = n
	}
	return config, nil
}

// OrderCommand loads the four source tables, merges overrides and writes the
// order quantities
type OrderCommand struct {
	config   Config
	logger   *logrus.Logger
	validate *validator.Validate
}

// NewOrderCommand creates a new order command with the given configuration
func NewOrderCommand(config Config) *OrderCommand {
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}

	return &OrderCommand{
		config:   config,
		logger:   logging.GetLogger(),
		validate: validator.New(),
	}
}

// Execute runs the order command
func (c *OrderCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if err := logging.Configure(c.config.LogLevel, c.config.Verbose); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if c.config.ShowAudit {
		return c.showAudit(ctx)
	}

	edits, err := c.parseOverrideFlags()
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	files, err := c.resolveInputFiles()
	if err != nil {
		return err
	}

	if c.config.Verbose {
		c.printHeader(files)
	}

	serviceConfig, err := c.serviceConfig()
	if err != nil {
		return err
	}

	tables, err := csv.NewRepository(files).LoadAll()
	if err != nil {
		return fmt.Errorf("error loading source tables: %w", err)
	}

	store, auditStore, err := c.openOverrideStore()
	if err != nil {
		return err
	}
	defer store.Close()

	overrides, err := c.mergeOverrides(ctx, store, edits)
	if err != nil {
		return err
	}

	session, err := entities.NewSession(c.config.TargetMonths, overrides)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	registry := metrics.NewRegistry()
	service := services.NewOrderService(serviceConfig, c.logger, registry)

	result, planErr := service.Plan(ctx, tables, session)
	if err := c.writeMetrics(registry); err != nil {
		return err
	}
	if planErr != nil {
		logging.LogError(c.logger, "commands", "Execute", "plan", nil, planErr)
		return fmt.Errorf("error calculating order quantities: %w", planErr)
	}

	// override edits are kept only once the run they belong to succeeds
	trail := events.NewTrail(auditStore)
	trail.Subscribe(events.NewLogHandler(c.logger), events.AllEventTypes...)
	if err := c.syncStore(ctx, store, trail, overrides, result.RunID); err != nil {
		return err
	}

	if err := trail.Record(ctx, events.OrdersCalculatedEvent, result.RunID, result.RunID, events.OrdersCalculated{
		RunID:           result.RunID,
		TargetMonths:    result.TargetMonths,
		Products:        len(result.Rows),
		ProductsToOrder: result.ProductsToOrder(),
		Unmatched:       len(result.Unmatched),
		StaleOverrides:  len(result.StaleOverrides),
	}); err != nil {
		return fmt.Errorf("error recording run: %w", err)
	}

	outputConfig := output.Config{
		Format:     c.config.Format,
		OutputDir:  c.config.OutputDir,
		Verbose:    c.config.Verbose,
		InputFiles: files,
		Stdout:     c.config.Stdout,
	}
	if err := output.Generate(result, outputConfig); err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintln(c.config.Stdout, "🏁 Reorder calculation complete!")
	}

	return nil
}

// validateInputs validates the command configuration
func (c *OrderCommand) validateInputs() error {
	if err := c.validate.Struct(c.config); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		messages := make([]string, 0, len(validationErrors))
		for _, ve := range validationErrors {
			messages = append(messages, fmt.Sprintf("%s: %s=%s (got %v)", ve.Field(), ve.Tag(), ve.Param(), ve.Value()))
		}
		return errors.New(strings.Join(messages, "; "))
	}

	if c.config.ShowAudit {
		if c.config.OverrideDB == "" {
			return fmt.Errorf("-show-audit requires -override-db")
		}
		return nil
	}
	if c.config.AuditStream != "" {
		return fmt.Errorf("-audit-stream requires -show-audit")
	}

	if (c.config.Format == "csv" || c.config.Format == "xlsx") && c.config.OutputDir == "" {
		return fmt.Errorf("-output directory required for %s format", c.config.Format)
	}
	return nil
}

// resolveInputFiles determines the file path for each source. Individual
// flags win over the input directory. Every absent file is reported at once.
func (c *OrderCommand) resolveInputFiles() (map[entities.SourceKind]string, error) {
	explicit := map[entities.SourceKind]string{
		entities.MedsOnHand:           c.config.MedsOnHandFile,
		entities.ProductsOnHand:       c.config.ProductsOnHandFile,
		entities.DispensedPast2Months: c.config.Dispensed2MFile,
		entities.DispensedPast6Months: c.config.Dispensed6MFile,
	}

	files := make(map[entities.SourceKind]string, len(entities.AllSources))
	var missing []entities.SourceKind
	for _, kind := range entities.AllSources {
		path := explicit[kind]
		if path == "" && c.config.InputDir != "" {
			path = filepath.Join(c.config.InputDir, CanonicalFileNames[kind])
		}
		if path == "" {
			missing = append(missing, kind)
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			missing = append(missing, kind)
			continue
		}
		files[kind] = path
	}

	if len(missing) > 0 {
		return nil, &entities.MissingInputError{Sources: missing}
	}
	return files, nil
}

func (c *OrderCommand) serviceConfig() (services.ServiceConfig, error) {
	policy, err := domainservices.ParseDuplicatePolicy(c.config.Duplicates)
	if err != nil {
		return services.ServiceConfig{}, fmt.Errorf("validation error: %w", err)
	}

	roles := entities.DefaultSchema()
	if c.config.SchemaFile != "" {
		roles, err = schema.Load(c.config.SchemaFile)
		if err != nil {
			return services.ServiceConfig{}, fmt.Errorf("error loading schema: %w", err)
		}
	}

	return services.ServiceConfig{Schema: roles, DuplicatePolicy: policy}, nil
}

// openOverrideStore opens the override store and the audit trail kept with
// it. Without -override-db both live in memory for this run only.
func (c *OrderCommand) openOverrideStore() (repositories.OverrideRepository, events.Store, error) {
	if c.config.OverrideDB == "" {
		return memory.NewOverrideRepository(), events.NewInMemoryEventStore(), nil
	}
	store, err := sqlite.NewOverrideRepository(c.config.OverrideDB)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening override store: %w", err)
	}
	return store, store.AuditStore(), nil
}

// overrideEdits are the override changes requested on the command line
type overrideEdits struct {
	set   map[entities.ProductKey]decimal.Decimal
	clear []entities.ProductKey
}

// parseOverrideFlags parses -set-override KEY=QTY and -clear-override KEY.
// The key may itself contain '='; the quantity follows the last one.
func (c *OrderCommand) parseOverrideFlags() (overrideEdits, error) {
	edits := overrideEdits{set: make(map[entities.ProductKey]decimal.Decimal)}

	for _, raw := range c.config.SetOverrides {
		i := strings.LastIndex(raw, "=")
		if i <= 0 {
			return edits, fmt.Errorf("invalid -set-override %q (expected KEY=QTY)", raw)
		}
		product := entities.ProductKey(raw[:i])
		target, err := csv.ParseOverrideTarget(raw[i+1:])
		if err != nil {
			return edits, fmt.Errorf("invalid -set-override %q: %w", raw, err)
		}
		if !target.Valid {
			edits.clear = append(edits.clear, product)
			continue
		}
		edits.set[product] = target.Decimal
	}

	for _, raw := range c.config.ClearOverrides {
		if raw == "" {
			return edits, fmt.Errorf("-clear-override requires a product key")
		}
		product := entities.ProductKey(raw)
		delete(edits.set, product)
		edits.clear = append(edits.clear, product)
	}

	return edits, nil
}

// mergeOverrides layers stored overrides, the overrides file and the command
// line edits, in that order. The store is not changed.
func (c *OrderCommand) mergeOverrides(ctx context.Context, store repositories.OverrideRepository, edits overrideEdits) (map[entities.ProductKey]decimal.Decimal, error) {
	merged, err := store.GetAllOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading stored overrides: %w", err)
	}
	stored := len(merged)

	if c.config.OverridesFile != "" {
		sheet, err := csv.NewLoader().LoadOverrides(c.config.OverridesFile)
		if err != nil {
			return nil, fmt.Errorf("error loading overrides: %w", err)
		}
		for _, product := range sheet.Clear {
			delete(merged, product)
		}
		for product, target := range sheet.Set {
			merged[product] = target
		}
	}

	for _, product := range edits.clear {
		delete(merged, product)
	}
	for product, target := range edits.set {
		merged[product] = target
	}

	c.logger.WithFields(logrus.Fields{
		"stored": stored,
		"active": len(merged),
	}).Debug("overrides merged")

	return merged, nil
}

// syncStore makes the store hold exactly overrides, recording each change
// in the audit trail under runID
func (c *OrderCommand) syncStore(ctx context.Context, store repositories.OverrideRepository, trail *events.Trail, overrides map[entities.ProductKey]decimal.Decimal, runID string) error {
	current, err := store.GetAllOverrides(ctx)
	if err != nil {
		return fmt.Errorf("error reading stored overrides: %w", err)
	}

	cleared := make([]entities.ProductKey, 0)
	for product := range current {
		if _, keep := overrides[product]; !keep {
			cleared = append(cleared, product)
		}
	}
	sortKeys(cleared)
	for _, product := range cleared {
		if err := store.ClearOverride(ctx, product); err != nil {
			return fmt.Errorf("error saving overrides: %w", err)
		}
		event := events.OverrideCleared{Product: product, Previous: current[product]}
		if err := trail.Record(ctx, events.OverrideClearedEvent, string(product), runID, event); err != nil {
			return fmt.Errorf("error recording override change: %w", err)
		}
	}

	products := make([]entities.ProductKey, 0, len(overrides))
	for product := range overrides {
		products = append(products, product)
	}
	sortKeys(products)
	for _, product := range products {
		prev, existed := current[product]
		if existed && prev.Equal(overrides[product]) {
			continue
		}
		if err := store.SetOverride(ctx, product, overrides[product]); err != nil {
			return fmt.Errorf("error saving overrides: %w", err)
		}
		set := events.OverrideSet{Product: product, Target: overrides[product]}
		if existed {
			set.Previous = decimal.NewNullDecimal(prev)
		}
		if err := trail.Record(ctx, events.OverrideSetEvent, string(product), runID, set); err != nil {
			return fmt.Errorf("error recording override change: %w", err)
		}
	}
	return nil
}

// showAudit prints the audit trail kept in the override database, or one
// stream of it when -audit-stream names a product key or run id
func (c *OrderCommand) showAudit(ctx context.Context) error {
	repo, err := sqlite.NewOverrideRepository(c.config.OverrideDB)
	if err != nil {
		return fmt.Errorf("error opening override store: %w", err)
	}
	defer repo.Close()
	store := repo.AuditStore()

	var trail []events.Event
	if c.config.AuditStream != "" {
		trail, err = store.ReadEvents(ctx, c.config.AuditStream, 1)
	} else {
		trail, err = store.ReadAllEvents(ctx, 0)
	}
	if err != nil {
		return fmt.Errorf("error reading audit trail: %w", err)
	}

	w := c.config.Stdout
	if c.config.Format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(trail)
	}

	if len(trail) == 0 {
		fmt.Fprintln(w, "No audit events recorded")
		return nil
	}
	fmt.Fprintf(w, "📜 Audit Trail (%d events)\n", len(trail))
	for _, e := range trail {
		fmt.Fprintf(w, "%5d  %s  %-18s %s v%d  run=%s  %s\n",
			e.Seq, e.Recorded.Format(time.RFC3339), e.Type, e.Stream, e.Version, e.RunID, e.Data)
	}
	return nil
}

func sortKeys(keys []entities.ProductKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}

func (c *OrderCommand) writeMetrics(registry *metrics.Registry) error {
	if c.config.MetricsFile == "" {
		return nil
	}
	if err := registry.WriteTextfile(c.config.MetricsFile); err != nil {
		return fmt.Errorf("error writing metrics file: %w", err)
	}
	return nil
}

// printHeader prints the command header information
func (c *OrderCommand) printHeader(files map[entities.SourceKind]string) {
	w := c.config.Stdout
	fmt.Fprintf(w, "🚀 Medication Reorder CLI\n")
	fmt.Fprintf(w, "Input files:\n")
	for _, kind := range entities.AllSources {
		fmt.Fprintf(w, "  %s: %s\n", kind, files[kind])
	}
	fmt.Fprintf(w, "Target months: %d\n", c.config.TargetMonths)
	fmt.Fprintf(w, "Output format: %s\n", c.config.Format)
	if c.config.OutputDir != "" {
		fmt.Fprintf(w, "Output directory: %s\n", c.config.OutputDir)
	}
	if c.config.OverrideDB != "" {
		fmt.Fprintf(w, "Override store: %s\n", c.config.OverrideDB)
	}
	fmt.Fprintln(w)
}

// showHelp displays the help message
func (c *OrderCommand) showHelp() {
	fmt.Fprintf(c.config.Stdout, `Medication Reorder CLI - reorder quantities from inventory and dispensing history

USAGE:
    medorder -input-dir <directory>                         # Use directory with canonical CSV names
    medorder -meds-on-hand <file> -products-on-hand <file> ...  # Use individual CSV files
    medorder generate -output <directory>                  # Write sample input files

OPTIONS:
    -input-dir <dir>          Directory containing the four source CSV files
    -meds-on-hand <file>      Meds on hand CSV
    -products-on-hand <file>  Products on hand CSV
    -dispensed-2m <file>      Dispensed in the past 2 months CSV
    -dispensed-6m <file>      Dispensed in the past 6 months CSV
    -target-months <n>        Months of stock to cover, 1-12 (default: 2)
    -overrides <file>         Overrides CSV (product,target_qty_on_hand_override; blank clears)
    -set-override KEY=QTY     Set a target quantity override (repeatable)
    -clear-override KEY       Clear a target quantity override (repeatable)
    -override-db <file>       SQLite file that keeps overrides between runs
    -schema <file>            YAML column role mapping
    -duplicates <policy>      Duplicate product keys: reject or sum (default: reject)
    -output <dir>             Output directory for results (required for csv, xlsx)
    -format <fmt>             Output format: text, json, csv, xlsx (default: text)
    -metrics-file <file>      Write run metrics in Prometheus text format
    -show-audit               Print the override audit trail from -override-db and exit
    -audit-stream <key>       With -show-audit, only this product key or run id
    -log-level <level>        Log level: debug, info, warn, error (default: warn)
    -verbose                  Enable verbose output
    -help                     Show this help message

ENVIRONMENT (also read from .env):
    MEDORDER_TARGET_MONTHS, MEDORDER_INPUT_DIR, MEDORDER_OUTPUT_DIR,
    MEDORDER_FORMAT, MEDORDER_OVERRIDE_DB, MEDORDER_LOG_LEVEL

INPUT DIRECTORY STRUCTURE:
    inputs/
    ├── meds_on_hand.csv             # Generic Name, Description, Package Qty, Form, Containers
    ├── products_on_hand.csv         # Brand, Description, Package Qty, Units, On Hand
    ├── dispensed_past_2_months.csv  # Generic Name, Qty X Form, Package Qty, Form, Containers
    └── dispensed_past_6_months.csv  # Generic Name, Qty X Form, Package Qty, Form, Containers

Headers are matched after lowercasing and replacing spaces with underscores.
Products are matched on "{name} {description} {package qty} ({form})".

FORMULA:
    avg_dispensed = total_units_past_6_months / (6 / target_months)
    target_qty    = override, else max(total_units_past_2_months, avg_dispensed)
    qty_to_order  = max(0, target_qty - on_hand)

EXAMPLES:
    # Three months of cover, results as CSV
    medorder -input-dir inputs -target-months 3 -format csv -output results/

    # Keep overrides between runs (saved only when the run succeeds)
    medorder -input-dir inputs -override-db overrides.db -set-override "Amoxicillin 250mg 20 (capsule)=40"

    # Who changed what
    medorder -override-db overrides.db -show-audit -audit-stream "Amoxicillin 250mg 20 (capsule)"

    # Workbook with run metrics
    medorder -input-dir inputs -format xlsx -output results/ -metrics-file medorder.prom
`)
}
