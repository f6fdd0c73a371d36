package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

var two = decimal.NewFromInt(2)

// AlertPriority deriva la prioridad según qué tan por debajo del mínimo está el total:
// critical con stock cero, alta hasta la mitad del mínimo, media en otro caso.
func AlertPriority(total, minimum decimal.Decimal) string {
	if total.LessThanOrEqual(decimal.Zero) {
		return entity.AlertPriorityCritical
	}
	if total.LessThanOrEqual(minimum.Div(two)) {
		return entity.AlertPriorityHigh
	}
	return entity.AlertPriorityMedium
}
