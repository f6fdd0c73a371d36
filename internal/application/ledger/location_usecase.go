package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// RegisterLocationInputDTO alta de una ubicación física.
type RegisterLocationInputDTO struct {
	Kind string
	// ID del almacén provisional; para el general es el hospital; vacío para el central.
	ID         string
	HospitalID string
	Name       string
}

// LocationUseCase maestro de ubicaciones: alta y desactivación de almacenes generales y central.
type LocationUseCase struct {
	deps Deps
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(deps Deps) *LocationUseCase {
	return &LocationUseCase{deps: deps}
}

// RegisterLocation crea una ubicación. Un provisional pertenece a un hospital cuyo general ya
// existe y está activo; hay un solo general por hospital y un solo central.
func (uc *LocationUseCase) RegisterLocation(ctx context.Context, in RegisterLocationInputDTO) (*entity.Warehouse, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.HospitalID = strings.TrimSpace(in.HospitalID)
	wh := &entity.Warehouse{Name: strings.TrimSpace(in.Name), Active: true}
	switch in.Kind {
	case entity.LocationKindGeneral:
		hospital := in.HospitalID
		if hospital == "" {
			hospital = in.ID
		}
		if hospital == "" || (in.ID != "" && in.ID != hospital) {
			return nil, fmt.Errorf("%w: el general se identifica por su hospital", domain.ErrInvalidInput)
		}
		wh.Location = entity.GeneralWarehouse(hospital)
		wh.HospitalID = hospital
	case entity.LocationKindProvisional:
		if in.ID == "" || in.HospitalID == "" {
			return nil, fmt.Errorf("%w: provisional requiere id y hospital", domain.ErrInvalidInput)
		}
		wh.Location = entity.ProvisionalWarehouse(in.ID)
		wh.HospitalID = in.HospitalID
	case entity.LocationKindCentral:
		wh.Location = entity.CentralWarehouse()
	default:
		return nil, fmt.Errorf("%w: tipo de ubicación %q", domain.ErrInvalidInput, in.Kind)
	}
	if wh.Name == "" {
		wh.Name = wh.Key()
	}

	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		now := uc.deps.now()
		wh.CreatedAt, wh.UpdatedAt = now, now
		if wh.Location.Kind == entity.LocationKindProvisional {
			s := newSession(repos, nil, now, "")
			if _, err := s.requireWarehouse(ctx, entity.GeneralWarehouse(wh.HospitalID).Key(), false); err != nil {
				return err
			}
		}
		return repos.Warehouses.Create(ctx, wh)
	})
	uc.deps.observe("register_location", err)
	if err != nil {
		return nil, err
	}
	uc.deps.log().Info().Str("location", wh.Key()).Str("hospital_id", wh.HospitalID).Msg("ubicación registrada")
	return wh, nil
}

// GetLocation registro maestro de la ubicación (activa o no).
func (uc *LocationUseCase) GetLocation(ctx context.Context, key string) (*entity.Warehouse, error) {
	var wh *entity.Warehouse
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		wh, err = repos.Warehouses.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, &domain.UnknownLocationError{Location: key}
	}
	return wh, nil
}

// DeactivateLocation desactiva un general o el central sin stock. Los provisionales se dan de
// baja con DecommissionUseCase para que su stock se concilie.
func (uc *LocationUseCase) DeactivateLocation(ctx context.Context, key string) error {
	loc, err := entity.ParseLocation(key)
	if err != nil || loc.IsSink() {
		return &domain.UnknownLocationError{Location: key}
	}
	if loc.Kind == entity.LocationKindProvisional {
		return fmt.Errorf("%w: los provisionales se dan de baja por conciliación", domain.ErrInvalidInput)
	}
	err = uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		s := newSession(repos, nil, uc.deps.now(), "")
		if _, err := s.requireWarehouse(ctx, key, true); err != nil {
			return err
		}
		rows, err := repos.Stock.List(ctx, key, "")
		if err != nil {
			return err
		}
		for _, st := range rows {
			if !st.QuantityTotal.IsZero() {
				return fmt.Errorf("%w: %s conserva stock de %s", domain.ErrConflict, key, st.ItemID)
			}
		}
		if err := repos.Warehouses.Deactivate(ctx, key, s.now); err != nil {
			return err
		}
		open, err := repos.Alerts.ListOpen(ctx, key)
		if err != nil {
			return err
		}
		for _, a := range open {
			if err := repos.Alerts.UpdateState(ctx, a.ID, entity.AlertStateResolved, s.now); err != nil {
				return err
			}
		}
		return nil
	})
	uc.deps.observe("deactivate_location", err)
	return err
}
