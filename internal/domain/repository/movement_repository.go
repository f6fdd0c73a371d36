package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// MovementRepository libro de movimientos de solo inserción.
type MovementRepository interface {
	// Append inserta el registro y le asigna Seq.
	Append(ctx context.Context, record *entity.MovementRecord) error
	// History registros filtrados en orden de libro (Seq ascendente).
	History(ctx context.Context, filter entity.MovementFilter) ([]*entity.MovementRecord, error)
	// SumDelta suma firmada de QuantityDelta para (ubicación, insumo).
	SumDelta(ctx context.Context, location, itemID string) (decimal.Decimal, error)
}
