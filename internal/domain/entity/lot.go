package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot lote físico de un insumo en una ubicación. Nunca se elimina: un lote con
// QuantityRemaining == 0 queda inerte pero se conserva para auditoría.
type Lot struct {
	ID                string
	Location          string
	ItemID            string
	QuantityRemaining decimal.Decimal
	EnteredAt         time.Time
	ExpiresAt         *time.Time
	OriginNote        string
	// OriginRef contexto de lote (batchRef de traslado, "refund:<proc>", referencia de compra).
	OriginRef string
}

// HasStock indica si el lote tiene cantidad disponible.
func (l *Lot) HasStock() bool {
	return l.QuantityRemaining.GreaterThan(decimal.Zero)
}

// Clone copia profunda.
func (l *Lot) Clone() *Lot {
	c := *l
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

// EarliestExpiry devuelve la menor de dos fechas de vencimiento opcionales.
func EarliestExpiry(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	}
	return a
}
