package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación de LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, location, item_id, quantity_remaining, entered_at, expires_at, origin_note, origin_ref`

func scanLot(row pgx.Row) (*entity.Lot, error) {
	var l entity.Lot
	err := row.Scan(&l.ID, &l.Location, &l.ItemID, &l.QuantityRemaining, &l.EnteredAt, &l.ExpiresAt, &l.OriginNote, &l.OriginRef)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LotRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	var out []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListAvailable lotes con saldo en orden FIFO, bloqueados hasta el fin de la transacción.
func (r *LotRepo) ListAvailable(ctx context.Context, location, itemID string) ([]*entity.Lot, error) {
	return r.list(ctx, `
		SELECT `+lotColumns+`
		FROM lots
		WHERE location = $1 AND item_id = $2 AND quantity_remaining > 0
		ORDER BY entered_at, id
		FOR UPDATE`, location, itemID)
}

// ListByLocation lotes con saldo de una ubicación, agrupados por insumo y en orden FIFO.
func (r *LotRepo) ListByLocation(ctx context.Context, location string) ([]*entity.Lot, error) {
	return r.list(ctx, `
		SELECT `+lotColumns+`
		FROM lots
		WHERE location = $1 AND quantity_remaining > 0
		ORDER BY item_id, entered_at, id
		FOR UPDATE`, location)
}

// FindOpenByOrigin lote abierto más antiguo con la misma referencia de origen.
func (r *LotRepo) FindOpenByOrigin(ctx context.Context, location, itemID, originRef string) (*entity.Lot, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+lotColumns+`
		FROM lots
		WHERE location = $1 AND item_id = $2 AND origin_ref = $3 AND quantity_remaining > 0
		ORDER BY entered_at, id
		LIMIT 1
		FOR UPDATE`, location, itemID, originRef)
	l, err := scanLot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find lot by origin: %w", err)
	}
	return l, nil
}

// Create inserta un lote nuevo.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO lots (`+lotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		lot.ID, lot.Location, lot.ItemID, lot.QuantityRemaining, lot.EnteredAt, lot.ExpiresAt, lot.OriginNote, lot.OriginRef,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// UpdateQuantity fija el saldo de un lote. El CHECK de la tabla impide valores negativos.
func (r *LotRepo) UpdateQuantity(ctx context.Context, lotID string, quantity decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE lots SET quantity_remaining = $2 WHERE id = $1`, lotID, quantity)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SumRemaining suma de saldos de (ubicación, insumo), incluidos lotes en cero.
func (r *LotRepo) SumRemaining(ctx context.Context, location, itemID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_remaining), 0)
		FROM lots WHERE location = $1 AND item_id = $2`, location, itemID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum lots: %w", err)
	}
	return sum, nil
}
