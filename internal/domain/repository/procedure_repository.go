package repository

import (
	"context"
	"time"

	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// ProcedureRepository cabeceras de consumo por procedimiento.
type ProcedureRepository interface {
	// Create falla con domain.ErrDuplicate si el procedimiento ya consumió insumos.
	Create(ctx context.Context, procedure *entity.Procedure) error
	// GetForUpdate devuelve nil, nil si no existe.
	GetForUpdate(ctx context.Context, id string) (*entity.Procedure, error)
	MarkRefunded(ctx context.Context, id, actorID string, at time.Time) error
}
