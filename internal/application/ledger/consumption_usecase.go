package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
)

// ConsumeInputDTO consumo de la lista de insumos de un procedimiento quirúrgico.
type ConsumeInputDTO struct {
	WarehouseID string // ubicación provisional (provisional:<id>)
	ProcedureID string
	Items       []ItemQuantity
	ActorID     string
}

// ConsumptionLine insumo consumido y los lotes de los que salió.
type ConsumptionLine struct {
	ItemID   string
	Quantity decimal.Decimal
	Debits   []inventory.LotDebit
}

// ConsumptionResult resultado del consumo.
type ConsumptionResult struct {
	TransactionID string
	ProcedureID   string
	Warehouse     string
	Lines         []ConsumptionLine
}

// RefundLine insumo devuelto y el lote nuevo que lo recibió.
type RefundLine struct {
	ItemID   string
	Quantity decimal.Decimal
	LotID    string
}

// RefundResult resultado del reembolso por cancelación.
type RefundResult struct {
	TransactionID string
	ProcedureID   string
	// Location ubicación que recibió la devolución: el provisional original, o el general del
	// hospital si el provisional ya fue dado de baja.
	Location string
	Lines    []RefundLine
}

// ConsumptionUseCase consumo por procedimiento y su inverso exacto (reembolso por cancelación).
type ConsumptionUseCase struct {
	deps      Deps
	generator *ThresholdAlertGenerator
}

// NewConsumptionUseCase construye el caso de uso.
func NewConsumptionUseCase(deps Deps) *ConsumptionUseCase {
	return &ConsumptionUseCase{deps: deps, generator: NewThresholdAlertGenerator(deps.Logger)}
}

// ConsumeForProcedure descuenta del almacén provisional todos los insumos del procedimiento.
// Es todo o nada: si a cualquier insumo le falta aunque sea una unidad no se consume ninguno.
func (uc *ConsumptionUseCase) ConsumeForProcedure(ctx context.Context, in ConsumeInputDTO) (*ConsumptionResult, error) {
	res, err := uc.consume(ctx, in)
	uc.deps.observe("consume", err)
	return res, err
}

func (uc *ConsumptionUseCase) consume(ctx context.Context, in ConsumeInputDTO) (*ConsumptionResult, error) {
	loc, err := entity.ParseLocation(in.WarehouseID)
	if err != nil || loc.Kind != entity.LocationKindProvisional {
		return nil, fmt.Errorf("%w: el consumo sale de un almacén provisional", domain.ErrInvalidInput)
	}
	if in.ProcedureID == "" {
		return nil, fmt.Errorf("%w: procedimiento requerido", domain.ErrInvalidInput)
	}
	items, err := normalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	if err := uc.deps.requireItems(ctx, itemIDs(items)...); err != nil {
		return nil, err
	}

	var (
		result *ConsumptionResult
		opened []entity.Alert
	)
	err = uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		s := newSession(repos, uc.generator, uc.deps.now(), in.ActorID)
		if _, err := s.requireWarehouse(ctx, in.WarehouseID, false); err != nil {
			return err
		}
		err := repos.Procedures.Create(ctx, &entity.Procedure{
			ID:        in.ProcedureID,
			Warehouse: in.WarehouseID,
			Status:    entity.ProcedureStatusConsumed,
			ActorID:   in.ActorID,
			CreatedAt: s.now,
		})
		if err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return fmt.Errorf("%w: el procedimiento %s ya registró consumo", domain.ErrConflict, in.ProcedureID)
			}
			return err
		}

		sink := entity.Consumed(in.ProcedureID).Key()
		pairs := make([]pairKey, 0, 2*len(items))
		for _, it := range items {
			pairs = append(pairs, pairKey{in.WarehouseID, it.ItemID}, pairKey{sink, it.ItemID})
		}
		if err := s.lockPairs(ctx, pairs); err != nil {
			return err
		}

		plans := make([]*inventory.AllocationPlan, 0, len(items))
		lotSets := make([]map[string]*entity.Lot, 0, len(items))
		var failures []error
		for _, it := range items {
			p, lots, err := s.plan(ctx, in.WarehouseID, it.ItemID, it.Quantity)
			if err != nil {
				var ise *domain.InsufficientStockError
				if errors.As(err, &ise) {
					failures = append(failures, ise)
					continue
				}
				return err
			}
			plans = append(plans, p)
			lotSets = append(lotSets, lots)
		}
		if len(failures) > 0 {
			return batchOrSingle(failures)
		}

		result = &ConsumptionResult{TransactionID: s.txID, ProcedureID: in.ProcedureID, Warehouse: in.WarehouseID}
		for i, p := range plans {
			expiry, err := s.applyDebit(ctx, p, lotSets[i], recordSpec{
				kind:            entity.MovementKindConsumption,
				counterLocation: sink,
				procedureID:     in.ProcedureID,
			})
			if err != nil {
				return err
			}
			if _, err := s.applyCredit(ctx, creditInput{
				location:   sink,
				itemID:     p.ItemID,
				quantity:   p.Total,
				expiresAt:  expiry,
				originRef:  "procedure:" + in.ProcedureID,
				originNote: "consumo en " + in.WarehouseID,
			}, recordSpec{
				kind:            entity.MovementKindConsumption,
				counterLocation: in.WarehouseID,
				procedureID:     in.ProcedureID,
			}); err != nil {
				return err
			}
			result.Lines = append(result.Lines, ConsumptionLine{ItemID: p.ItemID, Quantity: p.Total, Debits: p.Debits})
		}
		s.reevaluateAlerts(ctx)
		opened = s.opened
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.deps.notifyOpened(ctx, opened)
	uc.deps.log().Info().
		Str("procedure_id", in.ProcedureID).
		Str("warehouse", in.WarehouseID).
		Int("items", len(result.Lines)).
		Msg("consumo de procedimiento registrado")
	return result, nil
}

// RefundProcedure revierte todo el consumo de un procedimiento cancelado. Cada insumo vuelve
// como un lote nuevo fechado ahora (entra al final de la cola FIFO). Un segundo reembolso del
// mismo procedimiento falla con domain.ErrAlreadyRefunded y nunca acredita dos veces.
func (uc *ConsumptionUseCase) RefundProcedure(ctx context.Context, procedureID, actorID string) (*RefundResult, error) {
	res, err := uc.refund(ctx, procedureID, actorID)
	uc.deps.observe("refund", err)
	return res, err
}

func (uc *ConsumptionUseCase) refund(ctx context.Context, procedureID, actorID string) (*RefundResult, error) {
	if procedureID == "" {
		return nil, fmt.Errorf("%w: procedimiento requerido", domain.ErrInvalidInput)
	}
	var (
		result *RefundResult
		opened []entity.Alert
	)
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		s := newSession(repos, uc.generator, uc.deps.now(), actorID)
		proc, err := repos.Procedures.GetForUpdate(ctx, procedureID)
		if err != nil {
			return err
		}
		if proc == nil {
			return fmt.Errorf("%w: procedimiento %s", domain.ErrNotFound, procedureID)
		}
		if proc.Status == entity.ProcedureStatusRefunded {
			return domain.ErrAlreadyRefunded
		}

		target, err := refundTarget(ctx, s, proc.Warehouse)
		if err != nil {
			return err
		}

		sink := entity.Consumed(procedureID).Key()
		lots, err := repos.Lots.ListByLocation(ctx, sink)
		if err != nil {
			return err
		}
		totals := sumByItem(lots)
		items := sortedKeys(totals)

		pairs := make([]pairKey, 0, 2*len(items))
		for _, item := range items {
			pairs = append(pairs, pairKey{sink, item}, pairKey{target, item})
		}
		if err := s.lockPairs(ctx, pairs); err != nil {
			return err
		}

		result = &RefundResult{TransactionID: s.txID, ProcedureID: procedureID, Location: target}
		reason := "cancelación del procedimiento " + procedureID
		for _, item := range items {
			p, lotSet, err := s.plan(ctx, sink, item, totals[item])
			if err != nil {
				return err
			}
			expiry, err := s.applyDebit(ctx, p, lotSet, recordSpec{
				kind:            entity.MovementKindRefund,
				counterLocation: target,
				reason:          reason,
				procedureID:     procedureID,
			})
			if err != nil {
				return err
			}
			lotID, err := s.applyCredit(ctx, creditInput{
				location:   target,
				itemID:     item,
				quantity:   p.Total,
				expiresAt:  expiry,
				originRef:  "refund:" + procedureID,
				originNote: reason,
			}, recordSpec{
				kind:            entity.MovementKindRefund,
				counterLocation: sink,
				reason:          reason,
				procedureID:     procedureID,
			})
			if err != nil {
				return err
			}
			result.Lines = append(result.Lines, RefundLine{ItemID: item, Quantity: p.Total, LotID: lotID})
		}
		if err := repos.Procedures.MarkRefunded(ctx, procedureID, actorID, s.now); err != nil {
			return err
		}
		s.reevaluateAlerts(ctx)
		opened = s.opened
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.deps.notifyOpened(ctx, opened)
	uc.deps.log().Info().
		Str("procedure_id", procedureID).
		Str("location", result.Location).
		Int("items", len(result.Lines)).
		Msg("reembolso de procedimiento registrado")
	return result, nil
}

// refundTarget el provisional que surtió el procedimiento; si ya está inactivo, el general de su hospital.
func refundTarget(ctx context.Context, s *session, warehouse string) (string, error) {
	wh, err := s.repos.Warehouses.Get(ctx, warehouse)
	if err != nil {
		return "", err
	}
	if wh == nil {
		return "", &domain.UnknownLocationError{Location: warehouse}
	}
	if wh.Active {
		return warehouse, nil
	}
	general := entity.GeneralWarehouse(wh.HospitalID).Key()
	if _, err := s.requireWarehouse(ctx, general, false); err != nil {
		return "", err
	}
	return general, nil
}

func sumByItem(lots []*entity.Lot) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, l := range lots {
		if l.HasStock() {
			totals[l.ItemID] = totals[l.ItemID].Add(l.QuantityRemaining)
		}
	}
	return totals
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
