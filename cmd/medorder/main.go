package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/vsinha/medorder/pkg/interfaces/cli/commands"
)

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "generate" {
		runGenerate(os.Args[2:])
		return
	}

	defaults, err := commands.DefaultConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Command line flags
	var (
		inputDir = flag.String(
			"input-dir",
			defaults.InputDir,
			"Directory containing the four source CSV files",
		)
		medsFile      = flag.String("meds-on-hand", "", "Path to meds on hand CSV file")
		productsFile  = flag.String("products-on-hand", "", "Path to products on hand CSV file")
		dispensed2M   = flag.String("dispensed-2m", "", "Path to dispensed past 2 months CSV file")
		dispensed6M   = flag.String("dispensed-6m", "", "Path to dispensed past 6 months CSV file")
		targetMonths  = flag.Int("target-months", defaults.TargetMonths, "Months of stock to cover (1-12)")
		overridesFile = flag.String("overrides", "", "Path to overrides CSV file")
		overrideDB    = flag.String("override-db", defaults.OverrideDB, "SQLite file that keeps overrides between runs")
		schemaFile    = flag.String("schema", "", "Path to YAML column role mapping")
		duplicates    = flag.String("duplicates", defaults.Duplicates, "Duplicate product keys: reject or sum")
		outputDir     = flag.String("output", defaults.OutputDir, "Output directory for results")
		format        = flag.String("format", defaults.Format, "Output format: text, json, csv, xlsx")
		metricsFile   = flag.String("metrics-file", "", "Write run metrics in Prometheus text format")
		showAudit     = flag.Bool("show-audit", false, "Print the override audit trail and exit")
		auditStream   = flag.String("audit-stream", "", "With -show-audit, only this product key or run id")
		logLevel      = flag.String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
		verbose       = flag.Bool("verbose", false, "Enable verbose output")
		help          = flag.Bool("help", false, "Show help message")
	)
	var setOverrides, clearOverrides stringList
	flag.Var(&setOverrides, "set-override", "Set a target quantity override as KEY=QTY (repeatable)")
	flag.Var(&clearOverrides, "clear-override", "Clear the target quantity override for KEY (repeatable)")

	flag.Parse()

	// Create command configuration
	config := commands.Config{
		InputDir:           *inputDir,
		MedsOnHandFile:     *medsFile,
		ProductsOnHandFile: *productsFile,
		Dispensed2MFile:    *dispensed2M,
		Dispensed6MFile:    *dispensed6M,
		TargetMonths:       *targetMonths,
		OverridesFile:      *overridesFile,
		SetOverrides:       setOverrides,
		ClearOverrides:     clearOverrides,
		OverrideDB:         *overrideDB,
		SchemaFile:         *schemaFile,
		Duplicates:         *duplicates,
		OutputDir:          *outputDir,
		Format:             *format,
		MetricsFile:        *metricsFile,
		ShowAudit:          *showAudit,
		AuditStream:        *auditStream,
		LogLevel:           *logLevel,
		Verbose:            *verbose,
		Help:               *help,
	}

	// Create and execute command
	cmd := commands.NewOrderCommand(config)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = cmd.Execute(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runGenerate handles "medorder generate", which writes sample input files
func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		products  = fs.Int("products", 50, "Number of distinct products to generate")
		coverage  = fs.Float64("coverage", 1.5, "Months of stock on hand")
		unmatched = fs.Float64("unmatched", 0.05, "Share of meds on hand with no dispensing history")
		outputDir = fs.String("output", "", "Output directory for generated files")
		seed      = fs.Int64("seed", 0, "Random seed for reproducible generation")
		verbose   = fs.Bool("verbose", false, "Enable verbose output")
		help      = fs.Bool("help", false, "Show help message")
	)
	_ = fs.Parse(args)

	cmd := commands.NewGenerateCommand(commands.GenerateConfig{
		Products:  *products,
		Coverage:  *coverage,
		Unmatched: *unmatched,
		OutputDir: *outputDir,
		Seed:      *seed,
		Verbose:   *verbose,
		Help:      *help,
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.Execute(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
