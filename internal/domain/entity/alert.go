package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de alerta.
const (
	AlertStateActive    = "active"
	AlertStateInProcess = "in_process"
	AlertStateResolved  = "resolved"
)

// Prioridades de alerta.
const (
	AlertPriorityCritical = "critical"
	AlertPriorityHigh     = "alta"
	AlertPriorityMedium   = "media"
)

// Alert alerta de stock mínimo. Se resuelve, nunca se elimina.
type Alert struct {
	ID                string
	Location          string
	ItemID            string
	QuantityAtTrigger decimal.Decimal
	MinimumThreshold  decimal.Decimal
	Priority          string
	State             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}

// IsOpen activa o en proceso.
func (a *Alert) IsOpen() bool {
	return a.State == AlertStateActive || a.State == AlertStateInProcess
}
