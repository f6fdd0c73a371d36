package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// LotDebit cantidad a debitar de un lote concreto.
type LotDebit struct {
	LotID  string
	Amount decimal.Decimal
}

// AllocationPlan plan de débito en orden FIFO. La suma de Debits es exactamente Total.
type AllocationPlan struct {
	Location string
	ItemID   string
	Total    decimal.Decimal
	Debits   []LotDebit
}

// SortFIFO ordena lotes por EnteredAt ascendente; empates por ID para determinismo.
func SortFIFO(lots []*entity.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if !a.EnteredAt.Equal(b.EnteredAt) {
			return a.EnteredAt.Before(b.EnteredAt)
		}
		return a.ID < b.ID
	})
}

// Available suma de QuantityRemaining positiva de los lotes.
func Available(lots []*entity.Lot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		if l.HasStock() {
			total = total.Add(l.QuantityRemaining)
		}
	}
	return total
}

// Allocate (servicio de dominio, función pura) selecciona lotes del más antiguo al más nuevo
// hasta cubrir needed. Nunca asigna parcialmente: si lo disponible no alcanza devuelve
// *domain.InsufficientStockError con disponible y requerido. No modifica los lotes recibidos.
func Allocate(location, itemID string, lots []*entity.Lot, needed decimal.Decimal) (*AllocationPlan, error) {
	if !needed.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	candidates := make([]*entity.Lot, 0, len(lots))
	for _, l := range lots {
		if l.Location == location && l.ItemID == itemID && l.HasStock() {
			candidates = append(candidates, l)
		}
	}
	available := Available(candidates)
	if available.LessThan(needed) {
		return nil, &domain.InsufficientStockError{
			Location:  location,
			ItemID:    itemID,
			Available: available,
			Required:  needed,
		}
	}
	SortFIFO(candidates)

	plan := &AllocationPlan{Location: location, ItemID: itemID, Total: needed}
	remaining := needed
	for _, l := range candidates {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(l.QuantityRemaining, remaining)
		plan.Debits = append(plan.Debits, LotDebit{LotID: l.ID, Amount: take})
		remaining = remaining.Sub(take)
	}
	return plan, nil
}
