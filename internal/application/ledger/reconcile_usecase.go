package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
)

// ReconcileReport resultado de una conciliación.
type ReconcileReport struct {
	Checked    int
	Frozen     int // pares ya congelados antes de esta corrida
	Violations []*domain.IntegrityViolationError
}

// ReconcileUseCase auditoría: consolidado vs suma de lotes vs suma firmada del libro.
// Un descuadre nunca se corrige solo: congela el par y avisa a operación.
type ReconcileUseCase struct {
	deps Deps
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(deps Deps) *ReconcileUseCase {
	return &ReconcileUseCase{deps: deps}
}

// Reconcile verifica los pares filtrados (location e itemID pueden ir vacíos). Los pares que no
// cuadran quedan congelados; el error devuelto es la violación (o un BatchError si hay varias).
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, location, itemID string) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		*report = ReconcileReport{}
		rows, err := repos.Stock.List(ctx, location, itemID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.Frozen {
				report.Frozen++
				continue
			}
			st, err := repos.Stock.GetForUpdate(ctx, row.Location, row.ItemID)
			if err != nil {
				return err
			}
			violation, err := checkPair(ctx, repos, st)
			if err != nil {
				return err
			}
			report.Checked++
			if violation == nil {
				continue
			}
			st.Frozen = true
			st.UpdatedAt = uc.deps.now()
			if err := repos.Stock.Upsert(ctx, st); err != nil {
				return err
			}
			report.Violations = append(report.Violations, violation)
		}
		return nil
	})
	uc.deps.observe("reconcile", err)
	if err != nil {
		return nil, err
	}

	failures := make([]error, 0, len(report.Violations))
	for _, v := range report.Violations {
		uc.deps.log().Error().
			Str("location", v.Location).
			Str("item_id", v.ItemID).
			Str("stock", v.Stock.String()).
			Str("lot_sum", v.LotSum.String()).
			Str("ledger_sum", v.LedgerSum.String()).
			Msg("violación de integridad: par congelado")
		if uc.deps.Notifier != nil {
			uc.deps.Notifier.IntegrityViolation(ctx, *v)
		}
		failures = append(failures, v)
	}
	if len(failures) > 0 {
		return report, batchOrSingle(failures)
	}
	return report, nil
}

// UnfreezePair levanta el congelamiento después de la corrección manual. Vuelve a verificar el
// par y se niega si sigue sin cuadrar.
func (uc *ReconcileUseCase) UnfreezePair(ctx context.Context, location, itemID, actorID string) error {
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		st, err := repos.Stock.GetForUpdate(ctx, location, itemID)
		if err != nil {
			return err
		}
		if !st.Frozen {
			return fmt.Errorf("%w: %s/%s no está congelado", domain.ErrConflict, location, itemID)
		}
		violation, err := checkPair(ctx, repos, st)
		if err != nil {
			return err
		}
		if violation != nil {
			return violation
		}
		st.Frozen = false
		st.UpdatedAt = uc.deps.now()
		return repos.Stock.Upsert(ctx, st)
	})
	uc.deps.observe("unfreeze", err)
	if err == nil {
		uc.deps.log().Warn().Str("location", location).Str("item_id", itemID).Str("actor_id", actorID).Msg("par descongelado")
	}
	return err
}

func checkPair(ctx context.Context, repos Repositories, st *entity.ConsolidatedStock) (*domain.IntegrityViolationError, error) {
	lotSum, err := repos.Lots.SumRemaining(ctx, st.Location, st.ItemID)
	if err != nil {
		return nil, err
	}
	ledgerSum, err := repos.Movements.SumDelta(ctx, st.Location, st.ItemID)
	if err != nil {
		return nil, err
	}
	var violation *domain.IntegrityViolationError
	if errors.As(inventory.CheckIntegrity(st, lotSum, ledgerSum), &violation) {
		return violation, nil
	}
	return nil, nil
}
