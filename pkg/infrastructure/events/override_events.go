package events

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/medorder/pkg/domain/entities"
)

const (
	OverrideSetEvent     = "override.set"
	OverrideClearedEvent = "override.cleared"

	OrdersCalculatedEvent = "orders.calculated"
)

// AllEventTypes lists every event this package defines
var AllEventTypes = []string{OverrideSetEvent, OverrideClearedEvent, OrdersCalculatedEvent}

// OverrideSet records a new or changed target on a product stream
type OverrideSet struct {
	Product  entities.ProductKey `json:"product"`
	Previous decimal.NullDecimal `json:"previous"`
	Target   decimal.Decimal     `json:"target"`
}

// OverrideCleared records a target removed from the store
type OverrideCleared struct {
	Product  entities.ProductKey `json:"product"`
	Previous decimal.Decimal     `json:"previous"`
}

// OrdersCalculated closes a successful run on the run's stream
type OrdersCalculated struct {
	RunID           string `json:"run_id"`
	TargetMonths    int    `json:"target_months"`
	Products        int    `json:"products"`
	ProductsToOrder int    `json:"products_to_order"`
	Unmatched       int    `json:"unmatched"`
	StaleOverrides  int    `json:"stale_overrides"`
}

// LogHandler writes every event it receives to a logrus logger at info level
type LogHandler struct {
	logger *logrus.Logger
}

func NewLogHandler(logger *logrus.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Handle(event Event) error {
	h.logger.WithFields(logrus.Fields{
		"event":   event.Type,
		"stream":  event.Stream,
		"version": event.Version,
		"run_id":  event.RunID,
		"data":    event.Data,
	}).Info("audit")
	return nil
}
