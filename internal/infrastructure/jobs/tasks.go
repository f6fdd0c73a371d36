// Package jobs tareas asíncronas del libro sobre asynq: avisos de alertas y de violaciones de
// integridad, y la conciliación programada.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

const (
	// QueueDefault cola de avisos.
	QueueDefault = "default"
	// QueueCritical cola de violaciones de integridad; se atiende antes que la de avisos.
	QueueCritical = "critical"

	TaskAlertOpened        = "ledger:alert_opened"
	TaskIntegrityViolation = "ledger:integrity_violation"
	TaskReconcile          = "ledger:reconcile"
)

// AlertOpenedPayload datos de una alerta de stock mínimo recién abierta.
type AlertOpenedPayload struct {
	AlertID           string          `json:"alert_id"`
	Location          string          `json:"location"`
	ItemID            string          `json:"item_id"`
	QuantityAtTrigger decimal.Decimal `json:"quantity_at_trigger"`
	MinimumThreshold  decimal.Decimal `json:"minimum_threshold"`
	Priority          string          `json:"priority"`
	CreatedAt         time.Time       `json:"created_at"`
}

// IntegrityViolationPayload descuadre detectado por la conciliación.
type IntegrityViolationPayload struct {
	Location  string          `json:"location"`
	ItemID    string          `json:"item_id"`
	Stock     decimal.Decimal `json:"stock"`
	LotSum    decimal.Decimal `json:"lot_sum"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
}

// ReconcilePayload filtros opcionales de la conciliación.
type ReconcilePayload struct {
	Location string `json:"location,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
}

// NewAlertOpenedTask el TaskID es el ID de la alerta: un reintento del caso de uso no duplica el aviso.
func NewAlertOpenedTask(a entity.Alert) (*asynq.Task, error) {
	body, err := json.Marshal(AlertOpenedPayload{
		AlertID:           a.ID,
		Location:          a.Location,
		ItemID:            a.ItemID,
		QuantityAtTrigger: a.QuantityAtTrigger,
		MinimumThreshold:  a.MinimumThreshold,
		Priority:          a.Priority,
		CreatedAt:         a.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlertOpened, body,
		asynq.Queue(QueueDefault), asynq.TaskID("alert:"+a.ID), asynq.MaxRetry(10)), nil
}

func NewIntegrityViolationTask(v domain.IntegrityViolationError) (*asynq.Task, error) {
	body, err := json.Marshal(IntegrityViolationPayload{
		Location:  v.Location,
		ItemID:    v.ItemID,
		Stock:     v.Stock,
		LotSum:    v.LotSum,
		LedgerSum: v.LedgerSum,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityViolation, body, asynq.Queue(QueueCritical), asynq.MaxRetry(25)), nil
}

// NewReconcileTask tarea de conciliación; sin filtros recorre todos los pares.
func NewReconcileTask(p ReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, body, asynq.Queue(QueueCritical), asynq.MaxRetry(1)), nil
}
