package repository

import (
	"context"

	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// StockRepository puerto del stock consolidado por (ubicación, insumo).
// Usado dentro de transacciones para garantizar consistencia con los lotes.
type StockRepository interface {
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE). Si no existe la crea en cero antes de
	// bloquearla, para que dos transacciones sobre un par nuevo también se serialicen.
	GetForUpdate(ctx context.Context, location, itemID string) (*entity.ConsolidatedStock, error)
	Upsert(ctx context.Context, stock *entity.ConsolidatedStock) error
	// List filtra por ubicación e insumo; cualquiera de los dos puede ir vacío.
	List(ctx context.Context, location, itemID string) ([]*entity.ConsolidatedStock, error)
}
