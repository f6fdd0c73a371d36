package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
)

// Políticas de baja de un almacén provisional.
const (
	DecommissionReturnAll = "returnAll"
	DecommissionDiscard   = "discard"
)

// DecommissionInputDTO baja de un almacén provisional.
type DecommissionInputDTO struct {
	WarehouseID string
	Policy      string
	ActorID     string
	// Reason obligatorio con discard: la pérdida debe quedar explicada en el libro.
	Reason string
}

// DecommissionLine cantidad devuelta o descartada por insumo.
type DecommissionLine struct {
	ItemID   string
	Quantity decimal.Decimal
}

// DecommissionResult resultado de la baja.
type DecommissionResult struct {
	TransactionID string
	WarehouseID   string
	Policy        string
	// ReturnedTo almacén general que recibió el stock (solo returnAll).
	ReturnedTo string
	Lines      []DecommissionLine
}

// DecommissionUseCase conciliador de baja de almacenes provisionales. Nunca desactiva un
// almacén con stock sin devolverlo o descartarlo explícitamente.
type DecommissionUseCase struct {
	deps      Deps
	generator *ThresholdAlertGenerator
}

// NewDecommissionUseCase construye el caso de uso.
func NewDecommissionUseCase(deps Deps) *DecommissionUseCase {
	return &DecommissionUseCase{deps: deps, generator: NewThresholdAlertGenerator(deps.Logger)}
}

// DecommissionWarehouse devuelve (returnAll) o descarta (discard) todo el stock del almacén y lo
// marca inactivo, en una sola transacción: si cualquier insumo falla el almacén sigue activo.
// Un almacén sin stock se da de baja directamente con cualquiera de las dos políticas.
func (uc *DecommissionUseCase) DecommissionWarehouse(ctx context.Context, in DecommissionInputDTO) (*DecommissionResult, error) {
	res, err := uc.decommission(ctx, in)
	uc.deps.observe("decommission", err)
	return res, err
}

func (uc *DecommissionUseCase) decommission(ctx context.Context, in DecommissionInputDTO) (*DecommissionResult, error) {
	loc, err := entity.ParseLocation(in.WarehouseID)
	if err != nil || loc.Kind != entity.LocationKindProvisional {
		return nil, fmt.Errorf("%w: solo se dan de baja almacenes provisionales", domain.ErrInvalidInput)
	}
	switch in.Policy {
	case DecommissionReturnAll:
	case DecommissionDiscard:
		if strings.TrimSpace(in.Reason) == "" {
			return nil, fmt.Errorf("%w: el descarte requiere motivo", domain.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: política %q", domain.ErrInvalidInput, in.Policy)
	}

	var (
		result *DecommissionResult
		opened []entity.Alert
	)
	err = uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		s := newSession(repos, uc.generator, uc.deps.now(), in.ActorID)
		wh, err := s.requireWarehouse(ctx, in.WarehouseID, true)
		if err != nil {
			return err
		}
		lots, err := repos.Lots.ListByLocation(ctx, in.WarehouseID)
		if err != nil {
			return err
		}
		totals := sumByItem(lots)
		items := sortedKeys(totals)

		result = &DecommissionResult{TransactionID: s.txID, WarehouseID: in.WarehouseID, Policy: in.Policy}
		s.skipAlerts[in.WarehouseID] = true

		if len(items) > 0 {
			switch in.Policy {
			case DecommissionReturnAll:
				err = uc.returnAll(ctx, s, wh, items, totals, in.Reason, result)
			case DecommissionDiscard:
				err = uc.discard(ctx, s, lots, items, totals, in.Reason, result)
			}
			if err != nil {
				return err
			}
		}

		if err := repos.Warehouses.Deactivate(ctx, in.WarehouseID, s.now); err != nil {
			return err
		}
		uc.resolveAlerts(ctx, s, in.WarehouseID)
		s.reevaluateAlerts(ctx)
		opened = s.opened
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.deps.notifyOpened(ctx, opened)
	uc.deps.log().Info().
		Str("warehouse", in.WarehouseID).
		Str("policy", in.Policy).
		Int("items", len(result.Lines)).
		Msg("almacén provisional dado de baja")
	return result, nil
}

// returnAll un traslado por insumo al general del hospital: registros transfer-out por lote y
// un único transfer-in por insumo en destino.
func (uc *DecommissionUseCase) returnAll(ctx context.Context, s *session, wh *entity.Warehouse, items []string, totals map[string]decimal.Decimal, reason string, result *DecommissionResult) error {
	general := entity.GeneralWarehouse(wh.HospitalID).Key()
	if _, err := s.requireWarehouse(ctx, general, false); err != nil {
		return err
	}
	if reason == "" {
		reason = "baja de " + wh.Key()
	}
	result.ReturnedTo = general

	pairs := make([]pairKey, 0, 2*len(items))
	for _, item := range items {
		pairs = append(pairs, pairKey{wh.Key(), item}, pairKey{general, item})
	}
	if err := s.lockPairs(ctx, pairs); err != nil {
		return err
	}
	for _, item := range items {
		p, lots, err := s.plan(ctx, wh.Key(), item, totals[item])
		if err != nil {
			return err
		}
		expiry, err := s.applyDebit(ctx, p, lots, recordSpec{
			kind:            entity.MovementKindTransferOut,
			counterLocation: general,
			reason:          reason,
		})
		if err != nil {
			return err
		}
		if _, err := s.applyCredit(ctx, creditInput{
			location:   general,
			itemID:     item,
			quantity:   p.Total,
			expiresAt:  expiry,
			originRef:  "decommission:" + wh.Key(),
			originNote: reason,
		}, recordSpec{
			kind:            entity.MovementKindTransferIn,
			counterLocation: wh.Key(),
			reason:          reason,
		}); err != nil {
			return err
		}
		result.Lines = append(result.Lines, DecommissionLine{ItemID: item, Quantity: p.Total})
	}
	return nil
}

// discard un ajuste negativo por lote restante, con el motivo obligatorio.
func (uc *DecommissionUseCase) discard(ctx context.Context, s *session, lots []*entity.Lot, items []string, totals map[string]decimal.Decimal, reason string, result *DecommissionResult) error {
	pairs := make([]pairKey, 0, len(items))
	for _, item := range items {
		pairs = append(pairs, pairKey{lots[0].Location, item})
	}
	if err := s.lockPairs(ctx, pairs); err != nil {
		return err
	}
	inventory.SortFIFO(lots)
	for _, l := range lots {
		if !l.HasStock() {
			continue
		}
		if err := s.debitLot(ctx, l, l.QuantityRemaining, recordSpec{
			kind:   entity.MovementKindAdjustment,
			reason: "descarte por baja: " + reason,
		}); err != nil {
			return err
		}
	}
	for _, item := range items {
		result.Lines = append(result.Lines, DecommissionLine{ItemID: item, Quantity: totals[item]})
	}
	return nil
}

// resolveAlerts una ubicación inactiva no conserva alertas abiertas.
func (uc *DecommissionUseCase) resolveAlerts(ctx context.Context, s *session, location string) {
	open, err := s.repos.Alerts.ListOpen(ctx, location)
	if err != nil {
		uc.deps.log().Warn().Err(err).Str("location", location).Msg("baja: no se pudieron listar alertas")
		return
	}
	for _, a := range open {
		if err := s.repos.Alerts.UpdateState(ctx, a.ID, entity.AlertStateResolved, s.now); err != nil {
			uc.deps.log().Warn().Err(err).Str("alert_id", a.ID).Msg("baja: no se pudo resolver alerta")
		}
	}
}
