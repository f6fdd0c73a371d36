package entity

import "time"

// Estados de consumo de un procedimiento.
const (
	ProcedureStatusConsumed = "consumed"
	ProcedureStatusRefunded = "refunded"
)

// Procedure cabecera del consumo de un procedimiento quirúrgico. Garantiza que el
// reembolso por cancelación se aplique una sola vez.
type Procedure struct {
	ID         string
	Warehouse  string // ubicación provisional que surtió los insumos
	Status     string
	ActorID    string
	CreatedAt  time.Time
	RefundedAt *time.Time
	RefundedBy string
}
