package ledger

import (
	"context"
	"fmt"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// Paginación del historial.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// HistoryPage página del libro de movimientos.
type HistoryPage struct {
	Records []*entity.MovementRecord
	Limit   int
	Offset  int
	// HasMore hay más registros después de esta página.
	HasMore bool
}

// QueryUseCase consultas de solo lectura sobre stock y libro.
type QueryUseCase struct {
	deps Deps
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(deps Deps) *QueryUseCase {
	return &QueryUseCase{deps: deps}
}

// GetConsolidatedStock stock consolidado de una ubicación, opcionalmente de un solo insumo.
// Sin ubicación lista todas (vista de red del insumo).
func (uc *QueryUseCase) GetConsolidatedStock(ctx context.Context, location, itemID string) ([]*entity.ConsolidatedStock, error) {
	if location != "" {
		if _, err := entity.ParseLocation(location); err != nil {
			return nil, &domain.UnknownLocationError{Location: location}
		}
	}
	var out []*entity.ConsolidatedStock
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		out, err = repos.Stock.List(ctx, location, itemID)
		return err
	})
	return out, err
}

// GetLots lotes con stock de una ubicación (en orden FIFO por insumo).
func (uc *QueryUseCase) GetLots(ctx context.Context, location string) ([]*entity.Lot, error) {
	if _, err := entity.ParseLocation(location); err != nil {
		return nil, &domain.UnknownLocationError{Location: location}
	}
	var out []*entity.Lot
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		out, err = repos.Lots.ListByLocation(ctx, location)
		return err
	})
	return out, err
}

// GetMovementHistory historial paginado en orden de libro. Limit por defecto 50, máximo 500.
func (uc *QueryUseCase) GetMovementHistory(ctx context.Context, filter entity.MovementFilter) (*HistoryPage, error) {
	if filter.Location == "" && filter.ProcedureID == "" {
		return nil, fmt.Errorf("%w: ubicación o procedimiento requerido", domain.ErrInvalidInput)
	}
	if filter.Since != nil && filter.Until != nil && filter.Until.Before(*filter.Since) {
		return nil, fmt.Errorf("%w: rango de fechas invertido", domain.ErrInvalidInput)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	page := &HistoryPage{Limit: filter.Limit, Offset: filter.Offset}

	// se pide un registro extra para saber si hay más
	probe := filter
	probe.Limit = filter.Limit + 1
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		recs, err := repos.Movements.History(ctx, probe)
		if err != nil {
			return err
		}
		if len(recs) > filter.Limit {
			page.HasMore = true
			recs = recs[:filter.Limit]
		}
		page.Records = recs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
