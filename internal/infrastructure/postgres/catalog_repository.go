package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
)

var _ ledger.Catalog = (*CatalogRepo)(nil)

// CatalogRepo consulta la tabla catalog_items, que replica el catálogo maestro de insumos.
type CatalogRepo struct {
	q Querier
}

func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// Exists indica si el insumo está registrado.
func (r *CatalogRepo) Exists(ctx context.Context, itemID string) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM catalog_items WHERE id = $1)`, itemID).Scan(&ok); err != nil {
		return false, fmt.Errorf("catalog lookup: %w", err)
	}
	return ok, nil
}

// Upsert registra o renombra un insumo del catálogo (lo usa la sincronización con el maestro).
func (r *CatalogRepo) Upsert(ctx context.Context, itemID, name string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO catalog_items (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, itemID, name)
	if err != nil {
		return fmt.Errorf("catalog upsert: %w", err)
	}
	return nil
}
