package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// LotRepository puerto de persistencia de lotes. Solo se crean lotes o se cambia su cantidad;
// nunca se eliminan.
type LotRepository interface {
	// ListAvailable lotes con cantidad > 0 de (ubicación, insumo), en orden FIFO y bloqueados
	// para update dentro de la transacción.
	ListAvailable(ctx context.Context, location, itemID string) ([]*entity.Lot, error)
	// ListByLocation lotes con cantidad > 0 de una ubicación (todos los insumos).
	ListByLocation(ctx context.Context, location string) ([]*entity.Lot, error)
	// FindOpenByOrigin lote con cantidad > 0 creado por el mismo contexto de lote en la ubicación.
	FindOpenByOrigin(ctx context.Context, location, itemID, originRef string) (*entity.Lot, error)
	Create(ctx context.Context, lot *entity.Lot) error
	UpdateQuantity(ctx context.Context, lotID string, quantity decimal.Decimal) error
	SumRemaining(ctx context.Context, location, itemID string) (decimal.Decimal, error)
}
