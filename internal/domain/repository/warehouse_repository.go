package repository

import (
	"context"
	"time"

	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// WarehouseRepository puerto del maestro de ubicaciones físicas.
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	// Get devuelve nil, nil si no existe.
	Get(ctx context.Context, location string) (*entity.Warehouse, error)
	// GetForUpdate como Get pero bloquea la fila.
	GetForUpdate(ctx context.Context, location string) (*entity.Warehouse, error)
	Deactivate(ctx context.Context, location string, at time.Time) error
}
