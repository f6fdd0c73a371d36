package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `location, item_id, quantity_total, minimum_threshold, frozen, updated_at`

func scanStock(row pgx.Row) (*entity.ConsolidatedStock, error) {
	var s entity.ConsolidatedStock
	if err := row.Scan(&s.Location, &s.ItemID, &s.QuantityTotal, &s.MinimumThreshold, &s.Frozen, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
// Si el par no existe se inserta en cero primero: así también se bloquea un par nuevo.
func (r *StockRepo) GetForUpdate(ctx context.Context, location, itemID string) (*entity.ConsolidatedStock, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO consolidated_stock (location, item_id, quantity_total, minimum_threshold, frozen, updated_at)
		VALUES ($1, $2, 0, 0, false, now())
		ON CONFLICT (location, item_id) DO NOTHING`, location, itemID)
	if err != nil {
		return nil, fmt.Errorf("ensure stock row: %w", err)
	}
	s, err := scanStock(r.q.QueryRow(ctx, `
		SELECT `+stockColumns+`
		FROM consolidated_stock WHERE location = $1 AND item_id = $2
		FOR UPDATE`, location, itemID))
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return s, nil
}

// Upsert inserta o actualiza el consolidado del par.
func (r *StockRepo) Upsert(ctx context.Context, stock *entity.ConsolidatedStock) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO consolidated_stock (`+stockColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (location, item_id)
		DO UPDATE SET quantity_total = EXCLUDED.quantity_total,
		              minimum_threshold = EXCLUDED.minimum_threshold,
		              frozen = EXCLUDED.frozen,
		              updated_at = EXCLUDED.updated_at`,
		stock.Location, stock.ItemID, stock.QuantityTotal, stock.MinimumThreshold, stock.Frozen, stock.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// List consolidado filtrado por ubicación y/o insumo (vacío = sin filtro).
func (r *StockRepo) List(ctx context.Context, location, itemID string) ([]*entity.ConsolidatedStock, error) {
	var (
		where []string
		args  []any
	)
	if location != "" {
		args = append(args, location)
		where = append(where, fmt.Sprintf("location = $%d", len(args)))
	}
	if itemID != "" {
		args = append(args, itemID)
		where = append(where, fmt.Sprintf("item_id = $%d", len(args)))
	}
	query := `SELECT ` + stockColumns + ` FROM consolidated_stock`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY location, item_id"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var out []*entity.ConsolidatedStock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
