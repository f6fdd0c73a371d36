package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
	"github.com/jhoicas/insumos-ledger/internal/domain/repository"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// ThresholdAlertGenerator abre o resuelve la alerta de stock mínimo de un par (ubicación, insumo).
// Nunca devuelve error al caller: un fallo al escribir la alerta se registra en el log y la
// mutación de stock que lo disparó sigue adelante.
type ThresholdAlertGenerator struct {
	log *logger.Logger
}

// NewThresholdAlertGenerator construye el generador.
func NewThresholdAlertGenerator(log *logger.Logger) *ThresholdAlertGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &ThresholdAlertGenerator{log: log}
}

// Reevaluate aplica la regla de umbral sobre el valor ya escrito en la transacción actual.
// Devuelve la alerta si se abrió una nueva. Es idempotente.
func (g *ThresholdAlertGenerator) Reevaluate(ctx context.Context, alerts repository.AlertRepository, st *entity.ConsolidatedStock, now time.Time) *entity.Alert {
	if st == nil {
		return nil
	}
	open, err := alerts.FindOpen(ctx, st.Location, st.ItemID)
	if err != nil {
		g.warn(err, st, "buscar alerta abierta")
		return nil
	}

	if !st.BelowThreshold() {
		if open != nil {
			if err := alerts.UpdateState(ctx, open.ID, entity.AlertStateResolved, now); err != nil {
				g.warn(err, st, "resolver alerta")
			}
		}
		return nil
	}
	if open != nil {
		return nil
	}

	a := &entity.Alert{
		ID:                uuid.New().String(),
		Location:          st.Location,
		ItemID:            st.ItemID,
		QuantityAtTrigger: st.QuantityTotal,
		MinimumThreshold:  st.MinimumThreshold,
		Priority:          inventory.AlertPriority(st.QuantityTotal, st.MinimumThreshold),
		State:             entity.AlertStateActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := alerts.Create(ctx, a); err != nil {
		// otra transacción abrió la alerta primero: el índice único lo impide
		if !errors.Is(err, domain.ErrDuplicate) {
			g.warn(err, st, "crear alerta")
		}
		return nil
	}
	return a
}

func (g *ThresholdAlertGenerator) warn(err error, st *entity.ConsolidatedStock, op string) {
	g.log.Warn().Err(err).
		Str("location", st.Location).
		Str("item_id", st.ItemID).
		Msgf("alerta de umbral: no se pudo %s", op)
}

// AlertUseCase umbrales mínimos y gestión de alertas.
type AlertUseCase struct {
	deps      Deps
	generator *ThresholdAlertGenerator
}

// NewAlertUseCase construye el caso de uso.
func NewAlertUseCase(deps Deps) *AlertUseCase {
	return &AlertUseCase{deps: deps, generator: NewThresholdAlertGenerator(deps.Logger)}
}

// SetThresholdInputDTO umbral mínimo de un par.
type SetThresholdInputDTO struct {
	Location string
	ItemID   string
	Minimum  decimal.Decimal
}

// SetMinimumThreshold fija el mínimo (crea la fila consolidada si no existe) y reevalúa la alerta.
func (uc *AlertUseCase) SetMinimumThreshold(ctx context.Context, in SetThresholdInputDTO) (*entity.ConsolidatedStock, error) {
	var result *entity.ConsolidatedStock
	err := func() error {
		if in.Minimum.IsNegative() || !inventory.RepresentableQuantity(in.Minimum) {
			return domain.ErrInvalidInput
		}
		if err := uc.deps.requireItems(ctx, in.ItemID); err != nil {
			return err
		}
		var opened []entity.Alert
		err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
			s := newSession(repos, uc.generator, uc.deps.now(), "")
			if _, err := s.requireWarehouse(ctx, in.Location, false); err != nil {
				return err
			}
			st, err := s.lockStock(ctx, in.Location, in.ItemID)
			if err != nil {
				return err
			}
			st.MinimumThreshold = in.Minimum
			st.UpdatedAt = s.now
			if err := repos.Stock.Upsert(ctx, st); err != nil {
				return err
			}
			s.touch(st)
			s.reevaluateAlerts(ctx)
			c := *st
			result = &c
			opened = s.opened
			return nil
		})
		if err != nil {
			return err
		}
		uc.deps.notifyOpened(ctx, opened)
		return nil
	}()
	uc.deps.observe("set_threshold", err)
	return result, err
}

// UpdateAlertState avance manual del operador: active → in_process → resolved, nunca hacia atrás.
func (uc *AlertUseCase) UpdateAlertState(ctx context.Context, alertID, state string) (*entity.Alert, error) {
	var result *entity.Alert
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		a, err := repos.Alerts.GetByID(ctx, alertID)
		if err != nil {
			return err
		}
		if a == nil {
			return domain.ErrNotFound
		}
		if !alertTransitionAllowed(a.State, state) {
			return domain.ErrConflict
		}
		now := uc.deps.now()
		if err := repos.Alerts.UpdateState(ctx, a.ID, state, now); err != nil {
			return err
		}
		a.State = state
		a.UpdatedAt = now
		if state == entity.AlertStateResolved {
			a.ResolvedAt = &now
		}
		result = a
		return nil
	})
	uc.deps.observe("update_alert_state", err)
	return result, err
}

func alertTransitionAllowed(from, to string) bool {
	switch from {
	case entity.AlertStateActive:
		return to == entity.AlertStateInProcess || to == entity.AlertStateResolved
	case entity.AlertStateInProcess:
		return to == entity.AlertStateResolved
	}
	return false
}

// GetActiveAlerts alertas activas o en proceso; location vacío devuelve todas.
func (uc *AlertUseCase) GetActiveAlerts(ctx context.Context, location string) ([]*entity.Alert, error) {
	var out []*entity.Alert
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		out, err = repos.Alerts.ListOpen(ctx, location)
		return err
	})
	return out, err
}
