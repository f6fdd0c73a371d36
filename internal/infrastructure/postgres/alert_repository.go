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

var _ repository.AlertRepository = (*AlertRepo)(nil)

// AlertRepo alertas de stock mínimo. Lo que usa el generador de alertas (FindOpen, Create,
// UpdateState) va en savepoint: un fallo de alertas no aborta la transacción de stock que lo disparó.
type AlertRepo struct {
	q Querier
}

// NewAlertRepository construye el adaptador. Acepta pool o tx (Querier).
func NewAlertRepository(q Querier) *AlertRepo {
	return &AlertRepo{q: q}
}

const alertColumns = `id, location, item_id, quantity_at_trigger, minimum_threshold, priority, state, created_at, updated_at, resolved_at`

func scanAlert(row pgx.Row) (*entity.Alert, error) {
	var a entity.Alert
	err := row.Scan(&a.ID, &a.Location, &a.ItemID, &a.QuantityAtTrigger, &a.MinimumThreshold,
		&a.Priority, &a.State, &a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindOpen también va en savepoint: un fallo de lectura no debe abortar la transacción de stock.
func (r *AlertRepo) FindOpen(ctx context.Context, location, itemID string) (*entity.Alert, error) {
	var found *entity.Alert
	err := savepoint(ctx, r.q, func(q Querier) error {
		a, err := scanAlert(q.QueryRow(ctx, `
			SELECT `+alertColumns+`
			FROM alerts
			WHERE location = $1 AND item_id = $2 AND state IN ('active', 'in_process')`, location, itemID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		found = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find open alert: %w", err)
	}
	return found, nil
}

func (r *AlertRepo) GetByID(ctx context.Context, id string) (*entity.Alert, error) {
	a, err := scanAlert(r.q.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// Create el índice único parcial sobre alertas abiertas garantiza una sola por par.
func (r *AlertRepo) Create(ctx context.Context, a *entity.Alert) error {
	err := savepoint(ctx, r.q, func(q Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO alerts (`+alertColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			a.ID, a.Location, a.ItemID, a.QuantityAtTrigger, a.MinimumThreshold,
			a.Priority, a.State, a.CreatedAt, a.UpdatedAt, a.ResolvedAt,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepo) UpdateState(ctx context.Context, id, state string, at time.Time) error {
	var affected int64
	err := savepoint(ctx, r.q, func(q Querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE alerts
			SET state = $2,
			    updated_at = $3,
			    resolved_at = CASE WHEN $2 = 'resolved' THEN $3 ELSE resolved_at END
			WHERE id = $1`, id, state, at)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AlertRepo) ListOpen(ctx context.Context, location string) ([]*entity.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE state IN ('active', 'in_process')`
	var args []any
	if location != "" {
		query += ` AND location = $1`
		args = append(args, location)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	var out []*entity.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
