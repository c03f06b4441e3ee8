package entities

import (
	"github.com/shopspring/decimal"
)

const (
	MinTargetMonths     = 1
	MaxTargetMonths     = 12
	DefaultTargetMonths = 2
)

// Session carries the operator's choices for one run. It is passed by value
// into the pipeline; reruns after an override edit build a new Session.
type Session struct {
	TargetMonths int
	Overrides    map[ProductKey]decimal.Decimal
}

// NewSession creates a validated Session. The overrides map is copied.
func NewSession(targetMonths int, overrides map[ProductKey]decimal.Decimal) (Session, error) {
	if targetMonths < MinTargetMonths || targetMonths > MaxTargetMonths {
		return Session{}, ErrInvalidTargetMonths
	}
	copied := make(map[ProductKey]decimal.Decimal, len(overrides))
	for k, v := range overrides {
		copied[k] = v
	}
	return Session{
		TargetMonths: targetMonths,
		Overrides:    copied,
	}, nil
}

// Override returns the operator target for product, if one was set
func (s Session) Override(product ProductKey) decimal.NullDecimal {
	v, ok := s.Overrides[product]
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}
