package repository

import (
	"context"
	"time"

	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// AlertRepository puerto de alertas de stock mínimo. Create debe fallar con domain.ErrDuplicate
// si ya existe una alerta abierta (active/in_process) para el par.
type AlertRepository interface {
	FindOpen(ctx context.Context, location, itemID string) (*entity.Alert, error)
	GetByID(ctx context.Context, id string) (*entity.Alert, error)
	Create(ctx context.Context, alert *entity.Alert) error
	UpdateState(ctx context.Context, id, state string, at time.Time) error
	// ListOpen alertas activas o en proceso; location vacío = todas.
	ListOpen(ctx context.Context, location string) ([]*entity.Alert, error)
}
