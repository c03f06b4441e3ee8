package commands

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vsinha/medorder/pkg/domain/entities"
)

// GenerateConfig holds configuration for sample input generation
type GenerateConfig struct {
	Products  int     `validate:"min=1,max=3000"` // Distinct products to generate
	Coverage  float64 `validate:"gte=0"`          // Months of stock on hand (e.g., 0.5 = two weeks, 3.0 = a quarter)
	Unmatched float64 `validate:"gte=0,lte=1"`    // Share of meds on hand with no dispensing history
	OutputDir string  `validate:"required"`       // Output directory for generated files
	Seed      int64   // Random seed for reproducible generation
	Help      bool    // Show help
	Verbose   bool    // Verbose output

	Stdout io.Writer `validate:"-"`
}

// GenerateCommand writes a set of four source CSV files with the headers a
// pharmacy export uses
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}

	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
	}
}

// sampleProduct is one generated product and its usage profile
type sampleProduct struct {
	name       string
	strength   string
	packageQty int
	form       string
	monthly    float64 // containers dispensed per month
	prefixed   bool    // description exported as "1 x ..."
	inProducts bool
	inMeds     bool
	dispensed  bool
	missing2M  bool
	missing6M  bool
}

var (
	sampleNames = []string{
		"Amoxicillin", "Carprofen", "Cephalexin", "Gabapentin", "Meloxicam",
		"Prednisone", "Metronidazole", "Doxycycline", "Trazodone", "Famotidine",
		"Enrofloxacin", "Furosemide", "Apoquel", "Maropitant", "Clindamycin",
	}
	sampleStrengths   = []string{"5mg", "10mg", "25mg", "50mg", "100mg", "250mg", "500mg", "1.5mg/ml"}
	samplePackageQtys = []int{10, 20, 30, 50, 60, 100, 250}
	sampleForms       = []string{"Tablet", "Capsule", "Suspension", "Chewable"}
)

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}

	if err := validator.New().Struct(cmd.config); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			messages := make([]string, 0, len(validationErrors))
			for _, ve := range validationErrors {
				messages = append(messages, fmt.Sprintf("%s: %s=%s (got %v)", ve.Field(), ve.Tag(), ve.Param(), ve.Value()))
			}
			err = errors.New(strings.Join(messages, "; "))
		}
		return fmt.Errorf("validation error: %w", err)
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.config.Stdout,
			"🔧 Generating %d products, %.1f months on hand, %.0f%% unmatched\n",
			cmd.config.Products,
			cmd.config.Coverage,
			cmd.config.Unmatched*100,
		)
		fmt.Fprintf(cmd.config.Stdout, "📁 Output directory: %s\n", cmd.config.OutputDir)
		fmt.Fprintf(cmd.config.Stdout, "🎲 Random seed: %d\n", cmd.config.Seed)
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	products, err := cmd.generateProducts()
	if err != nil {
		return fmt.Errorf("failed to generate products: %w", err)
	}

	for _, kind := range entities.AllSources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cmd.config.Verbose {
			fmt.Fprintf(cmd.config.Stdout, "📦 Generating %s...\n", CanonicalFileNames[kind])
		}
		if err := cmd.writeSource(kind, products); err != nil {
			return fmt.Errorf("failed to generate %s: %w", kind, err)
		}
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.config.Stdout, "✅ Inputs generated successfully in %s\n", cmd.config.OutputDir)
	}

	return nil
}

// generateProducts picks distinct name/strength/package/form combinations and
// decides which sources carry each one
func (cmd *GenerateCommand) generateProducts() ([]sampleProduct, error) {
	combos := len(sampleNames) * len(sampleStrengths) * len(samplePackageQtys) * len(sampleForms)
	if cmd.config.Products > combos {
		return nil, fmt.Errorf("at most %d distinct products can be generated", combos)
	}

	products := make([]sampleProduct, 0, cmd.config.Products)
	for _, idx := range cmd.rand.Perm(combos)[:cmd.config.Products] {
		p := sampleProduct{
			name:       sampleNames[idx%len(sampleNames)],
			strength:   sampleStrengths[(idx/len(sampleNames))%len(sampleStrengths)],
			packageQty: samplePackageQtys[(idx/(len(sampleNames)*len(sampleStrengths)))%len(samplePackageQtys)],
			form:       sampleForms[idx/(len(sampleNames)*len(sampleStrengths)*len(samplePackageQtys))],
			monthly:    0.5 + cmd.rand.Float64()*20,
			prefixed:   cmd.rand.Float64() < 0.3,
		}

		if cmd.rand.Float64() < cmd.config.Unmatched {
			p.inMeds = true
		} else {
			p.dispensed = true
			// about one product in ten is missing from one history window
			switch r := cmd.rand.Float64(); {
			case r < 0.05:
				p.missing2M = true
			case r < 0.10:
				p.missing6M = true
			}
			// stock is recorded in products on hand, meds on hand or both
			switch r := cmd.rand.Float64(); {
			case r < 0.45:
				p.inProducts = true
			case r < 0.9:
				p.inMeds = true
			default:
				p.inProducts = true
				p.inMeds = true
			}
		}
		products = append(products, p)
	}

	return products, nil
}

func (cmd *GenerateCommand) writeSource(kind entities.SourceKind, products []sampleProduct) error {
	filePath := filepath.Join(cmd.config.OutputDir, CanonicalFileNames[kind])
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	switch kind {
	case entities.MedsOnHand:
		err = w.Write([]string{"Generic Name", "Description", "Package Qty", "Form", "Containers"})
	case entities.ProductsOnHand:
		err = w.Write([]string{"Brand", "Description", "Package Qty", "Units", "On Hand"})
	default:
		err = w.Write([]string{"Generic Name", "Qty X Form", "Package Qty", "Form", "Containers"})
	}
	if err != nil {
		return err
	}

	for _, p := range products {
		record, ok := cmd.record(kind, p)
		if !ok {
			continue
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// record renders p for one source, reporting false when the source does not
// carry the product
func (cmd *GenerateCommand) record(kind entities.SourceKind, p sampleProduct) ([]string, bool) {
	description := p.strength
	if p.prefixed {
		description = entities.DefaultIgnorePrefix + p.strength
	}
	packageQty := strconv.Itoa(p.packageQty)

	switch kind {
	case entities.MedsOnHand:
		if !p.inMeds {
			return nil, false
		}
		return []string{p.name, description, packageQty, p.form, cmd.onHand(p)}, true
	case entities.ProductsOnHand:
		if !p.inProducts {
			return nil, false
		}
		return []string{p.name, description, packageQty, strings.ToLower(p.form), cmd.onHand(p)}, true
	case entities.DispensedPast2Months:
		if !p.dispensed || p.missing2M {
			return nil, false
		}
		// recent usage swings either side of the long-run rate
		qty := p.monthly * 2 * (0.6 + cmd.rand.Float64())
		return []string{p.name, description, packageQty, p.form, strconv.Itoa(int(math.Round(qty)))}, true
	default:
		if !p.dispensed || p.missing6M {
			return nil, false
		}
		return []string{p.name, description, packageQty, p.form, strconv.Itoa(int(math.Round(p.monthly * 6)))}, true
	}
}

func (cmd *GenerateCommand) onHand(p sampleProduct) string {
	qty := p.monthly * cmd.config.Coverage * (0.5 + cmd.rand.Float64())
	return strconv.Itoa(int(math.Round(qty)))
}

// printHelp shows usage information
func (cmd *GenerateCommand) printHelp() {
	fmt.Fprintln(cmd.config.Stdout, `Medication Reorder Input Generator

USAGE:
    medorder generate [OPTIONS]

OPTIONS:
    -products <N>       Number of distinct products to generate (default: 50)
    -coverage <F>       Months of stock on hand (e.g., 0.5 = two weeks) (default: 1.5)
    -unmatched <F>      Share of meds on hand with no dispensing history (default: 0.05)
    -output <DIR>       Output directory for generated files (required)
    -seed <N>           Random seed for reproducible generation (optional)
    -verbose            Enable verbose output
    -help               Show this help message

EXAMPLES:
    # Generate a small pharmacy
    medorder generate -products 40 -output ./inputs

    # Understocked pharmacy, reproducible
    medorder generate -products 500 -coverage 0.3 -output ./low_stock -seed 12345`)
}
