package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/repository"
)

var _ repository.ProcedureRepository = (*ProcedureRepo)(nil)

// ProcedureRepo cabeceras de consumo por procedimiento.
type ProcedureRepo struct {
	q Querier
}

func NewProcedureRepository(q Querier) *ProcedureRepo {
	return &ProcedureRepo{q: q}
}

func (r *ProcedureRepo) Create(ctx context.Context, p *entity.Procedure) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO procedures (id, warehouse, status, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Warehouse, p.Status, p.ActorID, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert procedure: %w", err)
	}
	return nil
}

func (r *ProcedureRepo) GetForUpdate(ctx context.Context, id string) (*entity.Procedure, error) {
	var p entity.Procedure
	err := r.q.QueryRow(ctx, `
		SELECT id, warehouse, status, actor_id, created_at, refunded_at, COALESCE(refunded_by, '')
		FROM procedures WHERE id = $1
		FOR UPDATE`, id,
	).Scan(&p.ID, &p.Warehouse, &p.Status, &p.ActorID, &p.CreatedAt, &p.RefundedAt, &p.RefundedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get procedure: %w", err)
	}
	return &p, nil
}

// MarkRefunded solo cambia procedimientos aún consumidos.
func (r *ProcedureRepo) MarkRefunded(ctx context.Context, id, actorID string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE procedures SET status = $2, refunded_at = $3, refunded_by = $4
		WHERE id = $1 AND status = $5`,
		id, entity.ProcedureStatusRefunded, at, actorID, entity.ProcedureStatusConsumed,
	)
	if err != nil {
		return fmt.Errorf("mark procedure refunded: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyRefunded
	}
	return nil
}
