package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsolidatedStock total corriente por (ubicación, insumo). Siempre igual a la suma de
// QuantityRemaining de sus lotes; se mantiene incrementalmente en la misma transacción.
// Frozen se activa cuando la conciliación detecta un descuadre y bloquea nuevas escrituras.
type ConsolidatedStock struct {
	Location         string
	ItemID           string
	QuantityTotal    decimal.Decimal
	MinimumThreshold decimal.Decimal
	Frozen           bool
	UpdatedAt        time.Time
}

// BelowThreshold indica si el total está por debajo del mínimo.
func (s *ConsolidatedStock) BelowThreshold() bool {
	return s.QuantityTotal.LessThan(s.MinimumThreshold)
}
