package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas salvo decimal).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrAlreadyRefunded   = errors.New("el procedimiento ya fue reembolsado")
	ErrLocationInactive  = errors.New("la ubicación está inactiva")
	ErrPairFrozen        = errors.New("par ubicación/insumo congelado por violación de integridad")
)

// InsufficientStockError indica el faltante exacto de un insumo en una ubicación.
// El allocator nunca asigna parcialmente: el caller decide si recorta a Available o rechaza.
type InsufficientStockError struct {
	Location  string
	ItemID    string
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente de %s en %s: disponible %s, requerido %s",
		e.ItemID, e.Location, e.Available.String(), e.Required.String())
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Shortfall cantidad que falta para cubrir el requerimiento.
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// UnknownLocationError la ubicación no existe en el maestro de ubicaciones.
type UnknownLocationError struct {
	Location string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("ubicación desconocida: %s", e.Location)
}

func (e *UnknownLocationError) Is(target error) bool { return target == ErrNotFound }

// UnknownItemError el insumo no existe en el catálogo.
type UnknownItemError struct {
	ItemID string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("insumo desconocido: %s", e.ItemID)
}

func (e *UnknownItemError) Is(target error) bool { return target == ErrNotFound }

// ConcurrentModificationError se agotaron los reintentos por conflicto de serialización.
type ConcurrentModificationError struct {
	Attempts int
	Err      error
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("modificación concurrente tras %d intentos: %v", e.Attempts, e.Err)
}

func (e *ConcurrentModificationError) Is(target error) bool { return target == ErrConflict }

func (e *ConcurrentModificationError) Unwrap() error { return e.Err }

// IntegrityViolationError el stock consolidado no cuadra con los lotes o con el libro de movimientos.
type IntegrityViolationError struct {
	Location  string
	ItemID    string
	Stock     decimal.Decimal
	LotSum    decimal.Decimal
	LedgerSum decimal.Decimal
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("violación de integridad en %s/%s: consolidado %s, lotes %s, movimientos %s",
		e.Location, e.ItemID, e.Stock.String(), e.LotSum.String(), e.LedgerSum.String())
}

func (e *IntegrityViolationError) Is(target error) bool { return target == ErrPairFrozen }

// BatchError agrupa los fallos por insumo de una operación masiva.
type BatchError struct {
	Failures []error
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%d insumo(s) con error: %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error { return e.Failures }

// ShortageDetails extrae todos los InsufficientStockError contenidos en err (directo o en un BatchError).
func ShortageDetails(err error) []*InsufficientStockError {
	var out []*InsufficientStockError
	var batch *BatchError
	if errors.As(err, &batch) {
		for _, f := range batch.Failures {
			var ise *InsufficientStockError
			if errors.As(f, &ise) {
				out = append(out, ise)
			}
		}
		return out
	}
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		out = append(out, ise)
	}
	return out
}
