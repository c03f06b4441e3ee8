package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/medorder/pkg/application/dto"
	"github.com/vsinha/medorder/pkg/domain/entities"
	domainservices "github.com/vsinha/medorder/pkg/domain/services"
	"github.com/vsinha/medorder/pkg/infrastructure/metrics"
)

// SourceTables holds the raw tables for one run, keyed by source
type SourceTables map[entities.SourceKind]*entities.Table

// ServiceConfig holds configuration for the order service
type ServiceConfig struct {
	Schema          entities.Schema
	DuplicatePolicy domainservices.DuplicatePolicy
}

// OrderService runs the reconcile-and-calculate pipeline. Plan is a pure
// recomputation: the input tables are not modified, so a caller can rerun it
// with a new Session after every override edit.
type OrderService struct {
	config     ServiceConfig
	reconciler *Reconciler
	validator  *domainservices.KeyValidator
	logger     *logrus.Logger
	metrics    *metrics.Registry
}

// NewOrderService creates a new order service. registry may be nil.
func NewOrderService(config ServiceConfig, logger *logrus.Logger, registry *metrics.Registry) *OrderService {
	if config.Schema == nil {
		config.Schema = entities.DefaultSchema()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &OrderService{
		config:     config,
		reconciler: NewReconciler(),
		validator:  domainservices.NewKeyValidator(config.DuplicatePolicy),
		logger:     logger,
		metrics:    registry,
	}
}

// Plan normalizes and keys the four tables, reconciles them, checks the
// required columns, applies the session's overrides and calculates the order
// quantity for every product.
func (s *OrderService) Plan(ctx context.Context, tables SourceTables, session entities.Session) (*dto.OrderResult, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	log := s.logger.WithField("run_id", runID)

	result, err := s.plan(ctx, log, tables, session)
	if err != nil {
		s.metrics.RecordFailure(failureReason(err))
		return nil, err
	}

	result.RunID = runID
	result.ComputedAt = startTime
	result.Elapsed = time.Since(startTime)

	s.metrics.RecordRun(
		len(result.Rows),
		len(result.Unmatched),
		result.ProductsToOrder(),
		result.OverridesApplied(),
		len(result.StaleOverrides),
		result.Elapsed,
	)
	log.WithFields(logrus.Fields{
		"products":      len(result.Rows),
		"to_order":      result.ProductsToOrder(),
		"unmatched":     len(result.Unmatched),
		"target_months": session.TargetMonths,
	}).Debug("order quantities calculated")

	return result, nil
}

func (s *OrderService) plan(ctx context.Context, log *logrus.Entry, tables SourceTables, session entities.Session) (*dto.OrderResult, error) {
	calculator, err := NewOrderCalculator(session.TargetMonths)
	if err != nil {
		return nil, err
	}

	var missing []entities.SourceKind
	for _, kind := range entities.AllSources {
		if tables[kind] == nil {
			missing = append(missing, kind)
		}
	}
	if len(missing) > 0 {
		return nil, &entities.MissingInputError{Sources: missing}
	}

	sourceRows := make(map[entities.SourceKind]int, len(entities.AllSources))
	keyed := make(map[entities.SourceKind]*entities.KeyedSource, len(entities.AllSources))
	for _, kind := range entities.AllSources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table := cloneTable(tables[kind])
		table.Source = kind
		domainservices.NormalizeColumns(table)

		src, err := s.validator.KeySource(table, s.config.Schema.Spec(kind))
		if err != nil {
			return nil, fmt.Errorf("failed to key %s: %w", kind, err)
		}
		keyed[kind] = src
		sourceRows[kind] = len(table.Rows)
		s.metrics.AddSourceRows(kind.String(), len(table.Rows))

		log.WithFields(logrus.Fields{
			"source":   kind.String(),
			"rows":     len(table.Rows),
			"products": src.Len(),
		}).Debug("source keyed")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := s.reconciler.Reconcile(KeyedSources{
		MedsOnHand:     keyed[entities.MedsOnHand],
		ProductsOnHand: keyed[entities.ProductsOnHand],
		Dispensed2M:    keyed[entities.DispensedPast2Months],
		Dispensed6M:    keyed[entities.DispensedPast6Months],
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile sources: %w", err)
	}

	unmatched := ReportUnmatched(keyed[entities.MedsOnHand], table)
	for _, u := range unmatched {
		log.WithFields(logrus.Fields{
			"product": string(u.Product),
			"on_hand": u.OnHand.Decimal.String(),
		}).Warn("meds on hand product has no dispensed history")
	}

	if err := RequireColumns(table, RequiredColumns); err != nil {
		return nil, err
	}

	stale := applyOverrides(table, session)
	for _, o := range stale {
		log.WithField("product", string(o.Product)).Warn("override does not match any reconciled product")
	}

	calculator.CalculateAll(table)
	for i := range table.Rows {
		row := &table.Rows[i]
		for _, gap := range row.Incomplete {
			s.metrics.AddDataGap(gap.String())
		}
		if row.HasGaps() {
			log.WithFields(logrus.Fields{
				"product": string(row.Product),
				"gaps":    gapNames(row.Incomplete),
			}).Warn("incomplete data counted as zero")
		}
	}

	return &dto.OrderResult{
		TargetMonths:   session.TargetMonths,
		Rows:           table.Rows,
		Unmatched:      unmatched,
		StaleOverrides: stale,
		SourceRows:     sourceRows,
	}, nil
}

// applyOverrides copies the session's overrides onto matching rows and
// returns the ones with no matching product, sorted by key
func applyOverrides(table *entities.ReconciledTable, session entities.Session) []entities.StaleOverride {
	stale := make([]entities.StaleOverride, 0)
	for i := range table.Rows {
		table.Rows[i].TargetQtyOnHandOverride = session.Override(table.Rows[i].Product)
	}
	for product, target := range session.Overrides {
		if !table.Contains(product) {
			stale = append(stale, entities.StaleOverride{Product: product, Target: target})
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].Product < stale[j].Product })
	return stale
}

func cloneTable(t *entities.Table) *entities.Table {
	rows := make([]entities.RawRow, len(t.Rows))
	for i, row := range t.Rows {
		copied := make(entities.RawRow, len(row))
		for k, v := range row {
			copied[k] = v
		}
		rows[i] = copied
	}
	return &entities.Table{
		Source:  t.Source,
		Path:    t.Path,
		Headers: append([]string(nil), t.Headers...),
		Rows:    rows,
	}
}

func gapNames(gaps []entities.DataGap) []string {
	names := make([]string, len(gaps))
	for i, g := range gaps {
		names[i] = g.String()
	}
	return names
}

func failureReason(err error) string {
	var (
		missingInput   *entities.MissingInputError
		missingColumns *entities.MissingColumnsError
		duplicates     *entities.DuplicateKeysError
		duplicate      *entities.DuplicateKeyError
		invalidQty     *entities.InvalidQuantityError
	)
	switch {
	case errors.As(err, &missingInput):
		return "missing_input"
	case errors.As(err, &missingColumns):
		return "missing_columns"
	case errors.As(err, &duplicates), errors.As(err, &duplicate):
		return "duplicate_key"
	case errors.As(err, &invalidQty):
		return "invalid_quantity"
	case errors.Is(err, entities.ErrInvalidTargetMonths):
		return "invalid_target_months"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
