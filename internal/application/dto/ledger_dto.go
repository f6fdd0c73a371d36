package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Ubicaciones ────────────────────────────────────────────────────────────

// RegisterLocationRequest body para POST /api/locations.
type RegisterLocationRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=general provisional central"`
	ID         string `json:"id,omitempty" validate:"omitempty,max=64"`
	HospitalID string `json:"hospital_id,omitempty" validate:"omitempty,max=64"`
	Name       string `json:"name" validate:"max=120"`
}

// LocationResponse ubicación física.
type LocationResponse struct {
	Location      string     `json:"location"`
	Kind          string     `json:"kind"`
	HospitalID    string     `json:"hospital_id,omitempty"`
	Name          string     `json:"name"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// DecommissionRequest body para POST /api/locations/{location}/decommission.
type DecommissionRequest struct {
	Policy string `json:"policy" validate:"required,oneof=returnAll discard"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// DecommissionResponse resultado de la baja.
type DecommissionResponse struct {
	TransactionID string         `json:"transaction_id"`
	WarehouseID   string         `json:"warehouse_id"`
	Policy        string         `json:"policy"`
	ReturnedTo    string         `json:"returned_to,omitempty"`
	Lines         []ItemQuantity `json:"lines"`
}

// ─── Stock ──────────────────────────────────────────────────────────────────

// ItemQuantity línea (insumo, cantidad).
type ItemQuantity struct {
	ItemID   string          `json:"item_id" validate:"required,max=64"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReceiveStockRequest body para POST /api/stock/receipts.
type ReceiveStockRequest struct {
	Location  string          `json:"location" validate:"required"`
	ItemID    string          `json:"item_id" validate:"required,max=64"`
	Quantity  decimal.Decimal `json:"quantity"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Note      string          `json:"note,omitempty" validate:"max=500"`
	Reference string          `json:"reference,omitempty" validate:"max=120"`
}

// AdjustStockRequest body para POST /api/stock/adjustments.
type AdjustStockRequest struct {
	Location  string          `json:"location" validate:"required"`
	ItemID    string          `json:"item_id" validate:"required,max=64"`
	Delta     decimal.Decimal `json:"delta"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Reason    string          `json:"reason" validate:"required,max=500"`
}

// StockMovementResponse resultado de una recepción o ajuste.
type StockMovementResponse struct {
	TransactionID string          `json:"transaction_id"`
	Location      string          `json:"location"`
	ItemID        string          `json:"item_id"`
	Delta         decimal.Decimal `json:"delta"`
	LotIDs        []string        `json:"lot_ids"`
	QuantityTotal decimal.Decimal `json:"quantity_total"`
}

// SetThresholdRequest body para PUT /api/stock/thresholds.
type SetThresholdRequest struct {
	Location string          `json:"location" validate:"required"`
	ItemID   string          `json:"item_id" validate:"required,max=64"`
	Minimum  decimal.Decimal `json:"minimum"`
}

// StockResponse stock consolidado de un par.
type StockResponse struct {
	Location         string          `json:"location"`
	ItemID           string          `json:"item_id"`
	QuantityTotal    decimal.Decimal `json:"quantity_total"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	Frozen           bool            `json:"frozen"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// LotResponse lote con saldo.
type LotResponse struct {
	ID                string          `json:"id"`
	Location          string          `json:"location"`
	ItemID            string          `json:"item_id"`
	QuantityRemaining decimal.Decimal `json:"quantity_remaining"`
	EnteredAt         time.Time       `json:"entered_at"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	OriginNote        string          `json:"origin_note,omitempty"`
	OriginRef         string          `json:"origin_ref,omitempty"`
}

// ─── Traslados ──────────────────────────────────────────────────────────────

// TransferRequest body para POST /api/transfers.
type TransferRequest struct {
	From     string         `json:"from" validate:"required"`
	To       string         `json:"to" validate:"required,nefield=From"`
	Items    []ItemQuantity `json:"items" validate:"required,min=1,dive"`
	Reason   string         `json:"reason,omitempty" validate:"max=500"`
	Mode     string         `json:"mode,omitempty" validate:"omitempty,oneof=atomic best_effort"`
	BatchRef string         `json:"batch_ref,omitempty" validate:"max=120"`
}

// LotDebit cantidad tomada de un lote.
type LotDebit struct {
	LotID  string          `json:"lot_id"`
	Amount decimal.Decimal `json:"amount"`
}

// TransferLineResponse resultado por insumo.
type TransferLineResponse struct {
	ItemID           string          `json:"item_id"`
	Requested        decimal.Decimal `json:"requested"`
	Moved            decimal.Decimal `json:"moved"`
	Skipped          bool            `json:"skipped,omitempty"`
	SourceDebits     []LotDebit      `json:"source_debits"`
	DestinationLotID string          `json:"destination_lot_id,omitempty"`
}

// TransferResponse resultado del traslado.
type TransferResponse struct {
	TransactionID string                 `json:"transaction_id"`
	From          string                 `json:"from"`
	To            string                 `json:"to"`
	Mode          string                 `json:"mode"`
	Lines         []TransferLineResponse `json:"lines"`
}

// ─── Procedimientos ─────────────────────────────────────────────────────────

// ConsumeRequest body para POST /api/procedures/{id}/consumption.
type ConsumeRequest struct {
	WarehouseID string         `json:"warehouse_id" validate:"required"`
	Items       []ItemQuantity `json:"items" validate:"required,min=1,dive"`
}

// ConsumptionLineResponse insumo consumido.
type ConsumptionLineResponse struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Debits   []LotDebit      `json:"debits"`
}

// ConsumptionResponse resultado del consumo.
type ConsumptionResponse struct {
	TransactionID string                    `json:"transaction_id"`
	ProcedureID   string                    `json:"procedure_id"`
	Warehouse     string                    `json:"warehouse"`
	Lines         []ConsumptionLineResponse `json:"lines"`
}

// RefundLineResponse insumo devuelto.
type RefundLineResponse struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	LotID    string          `json:"lot_id"`
}

// RefundResponse resultado del reembolso.
type RefundResponse struct {
	TransactionID string               `json:"transaction_id"`
	ProcedureID   string               `json:"procedure_id"`
	Location      string               `json:"location"`
	Lines         []RefundLineResponse `json:"lines"`
}

// ─── Libro ──────────────────────────────────────────────────────────────────

// MovementHistoryQuery query string de GET /api/movements.
type MovementHistoryQuery struct {
	Location    string `query:"location"`
	ItemID      string `query:"item_id"`
	ProcedureID string `query:"procedure_id"`
	Since       string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Until       string `query:"until" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit       int    `query:"limit" validate:"min=0,max=500"`
	Offset      int    `query:"offset" validate:"min=0"`
}

// MovementResponse registro del libro.
type MovementResponse struct {
	Seq                int64           `json:"seq"`
	ID                 string          `json:"id"`
	TransactionID      string          `json:"transaction_id"`
	Timestamp          time.Time       `json:"timestamp"`
	Location           string          `json:"location"`
	CounterLocation    string          `json:"counter_location,omitempty"`
	ItemID             string          `json:"item_id"`
	LotID              string          `json:"lot_id,omitempty"`
	QuantityDelta      decimal.Decimal `json:"quantity_delta"`
	Kind               string          `json:"kind"`
	ActorID            string          `json:"actor_id"`
	ReasonText         string          `json:"reason_text,omitempty"`
	RelatedProcedureID string          `json:"related_procedure_id,omitempty"`
}

// MovementListResponse página del libro.
type MovementListResponse struct {
	Records []MovementResponse `json:"records"`
	Page    PageResponse       `json:"page"`
}

// ─── Alertas y conciliación ─────────────────────────────────────────────────

// AlertResponse alerta de stock mínimo.
type AlertResponse struct {
	ID                string          `json:"id"`
	Location          string          `json:"location"`
	ItemID            string          `json:"item_id"`
	QuantityAtTrigger decimal.Decimal `json:"quantity_at_trigger"`
	MinimumThreshold  decimal.Decimal `json:"minimum_threshold"`
	Priority          string          `json:"priority"`
	State             string          `json:"state"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
}

// UpdateAlertStateRequest body para PATCH /api/alerts/{id}.
type UpdateAlertStateRequest struct {
	State string `json:"state" validate:"required,oneof=in_process resolved"`
}

// ReconcileRequest body para POST /api/reconciliation (filtros opcionales).
type ReconcileRequest struct {
	Location string `json:"location,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
}

// ViolationResponse descuadre de un par.
type ViolationResponse struct {
	Location  string          `json:"location"`
	ItemID    string          `json:"item_id"`
	Stock     decimal.Decimal `json:"stock"`
	LotSum    decimal.Decimal `json:"lot_sum"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
}

// ReconcileResponse resultado de la conciliación.
type ReconcileResponse struct {
	Checked    int                 `json:"checked"`
	Frozen     int                 `json:"frozen"`
	Violations []ViolationResponse `json:"violations"`
}

// UnfreezeRequest body para POST /api/reconciliation/unfreeze.
type UnfreezeRequest struct {
	Location string `json:"location" validate:"required"`
	ItemID   string `json:"item_id" validate:"required"`
}
