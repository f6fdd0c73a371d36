package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos. La tabla rechaza UPDATE y DELETE por trigger y grants.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Acepta pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Append inserta el registro y devuelve en record.Seq su posición en el libro.
func (r *MovementRepo) Append(ctx context.Context, rec *entity.MovementRecord) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO movement_records (
			id, transaction_id, ts, location, counter_location, item_id, lot_id,
			quantity_delta, kind, actor_id, reason_text, related_procedure_id
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9, $10, $11, NULLIF($12, ''))
		RETURNING seq`,
		rec.ID, rec.TransactionID, rec.Timestamp, rec.Location, rec.CounterLocation, rec.ItemID, rec.LotID,
		rec.QuantityDelta, rec.Kind, rec.ActorID, rec.ReasonText, rec.RelatedProcedureID,
	).Scan(&rec.Seq)
	if err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

// History registros en orden de libro (seq).
func (r *MovementRepo) History(ctx context.Context, f entity.MovementFilter) ([]*entity.MovementRecord, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Location != "" {
		add("location = $%d", f.Location)
	}
	if f.ItemID != "" {
		add("item_id = $%d", f.ItemID)
	}
	if f.ProcedureID != "" {
		add("related_procedure_id = $%d", f.ProcedureID)
	}
	if f.Since != nil {
		add("ts >= $%d", *f.Since)
	}
	if f.Until != nil {
		add("ts <= $%d", *f.Until)
	}

	query := `
		SELECT seq, id, transaction_id, ts, location, COALESCE(counter_location, ''), item_id,
		       COALESCE(lot_id, ''), quantity_delta, kind, actor_id, reason_text,
		       COALESCE(related_procedure_id, '')
		FROM movement_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("movement history: %w", err)
	}
	defer rows.Close()
	var out []*entity.MovementRecord
	for rows.Next() {
		var m entity.MovementRecord
		if err := rows.Scan(
			&m.Seq, &m.ID, &m.TransactionID, &m.Timestamp, &m.Location, &m.CounterLocation, &m.ItemID,
			&m.LotID, &m.QuantityDelta, &m.Kind, &m.ActorID, &m.ReasonText, &m.RelatedProcedureID,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// SumDelta suma firmada del libro para el par.
func (r *MovementRepo) SumDelta(ctx context.Context, location, itemID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_delta), 0)
		FROM movement_records WHERE location = $1 AND item_id = $2`, location, itemID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum movements: %w", err)
	}
	return sum, nil
}
