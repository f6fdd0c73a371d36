package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro.
const (
	MovementKindReceipt     = "receipt"      // entrada por recepción de compra
	MovementKindTransferIn  = "transfer-in"  // entrada por traslado
	MovementKindTransferOut = "transfer-out" // salida por traslado (uno por lote debitado)
	MovementKindConsumption = "consumption"  // consumo por procedimiento
	MovementKindRefund      = "refund"       // devolución por cancelación de procedimiento
	MovementKindAdjustment  = "adjustment"   // corrección o descarte explícito
)

// MovementRecord registro inmutable del libro. Solo se inserta; nunca se actualiza ni elimina.
// Seq lo asigna el almacenamiento y define el orden del libro.
type MovementRecord struct {
	ID                 string
	Seq                int64
	TransactionID      string
	Timestamp          time.Time
	Location           string
	CounterLocation    string
	ItemID             string
	LotID              string
	QuantityDelta      decimal.Decimal // positivo entrada, negativo salida
	Kind               string
	ActorID            string
	ReasonText         string
	RelatedProcedureID string
}

// MovementFilter filtros del historial.
type MovementFilter struct {
	Location    string
	ItemID      string
	ProcedureID string
	Since       *time.Time
	Until       *time.Time
	Limit       int
	Offset      int
}
