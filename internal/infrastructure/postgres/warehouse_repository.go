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

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo implementación del puerto WarehouseRepository sobre la tabla locations.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para almacenes.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

const warehouseColumns = `location, hospital_id, name, active, created_at, updated_at, deactivated_at`

func scanWarehouse(row pgx.Row) (*entity.Warehouse, error) {
	var (
		w   entity.Warehouse
		key string
	)
	if err := row.Scan(&key, &w.HospitalID, &w.Name, &w.Active, &w.CreatedAt, &w.UpdatedAt, &w.DeactivatedAt); err != nil {
		return nil, err
	}
	loc, err := entity.ParseLocation(key)
	if err != nil {
		return nil, err
	}
	w.Location = loc
	return &w, nil
}

// Create persiste un almacén nuevo. Una clave repetida devuelve domain.ErrDuplicate.
func (r *WarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO locations (location, kind, hospital_id, name, active, created_at, updated_at, deactivated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.Key(), w.Location.Kind, w.HospitalID, w.Name, w.Active, w.CreatedAt, w.UpdatedAt, w.DeactivatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert warehouse: %w", err)
	}
	return nil
}

func (r *WarehouseRepo) get(ctx context.Context, query, location string) (*entity.Warehouse, error) {
	w, err := scanWarehouse(r.q.QueryRow(ctx, query, location))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return w, nil
}

// Get obtiene un almacén por su ubicación canónica.
func (r *WarehouseRepo) Get(ctx context.Context, location string) (*entity.Warehouse, error) {
	return r.get(ctx, `SELECT `+warehouseColumns+` FROM locations WHERE location = $1`, location)
}

// GetForUpdate igual que Get pero con FOR SHARE/UPDATE sobre la fila.
func (r *WarehouseRepo) GetForUpdate(ctx context.Context, location string) (*entity.Warehouse, error) {
	return r.get(ctx, `SELECT `+warehouseColumns+` FROM locations WHERE location = $1 FOR UPDATE`, location)
}

// Deactivate marca el almacén inactivo. No borra la fila.
func (r *WarehouseRepo) Deactivate(ctx context.Context, location string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE locations SET active = false, updated_at = $2, deactivated_at = $2
		WHERE location = $1`, location, at)
	if err != nil {
		return fmt.Errorf("deactivate warehouse: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
