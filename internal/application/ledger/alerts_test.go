package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// ThresholdAlertGenerator
// ──────────────────────────────────────────────────────────────────────────────

func TestAlertas_AbreUnaSolaYSeResuelveAlReponer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, general, gasa, 12)
	_, err := f.alerts.SetMinimumThreshold(ctx, ledger.SetThresholdInputDTO{Location: general, ItemID: gasa, Minimum: qty(10)})
	require.NoError(t, err)
	open, err := f.alerts.GetActiveAlerts(ctx, general)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = f.transfers.Transfer(ctx, general, provisional, gasa, qty(8), actor, "")
	require.NoError(t, err)
	open, err = f.alerts.GetActiveAlerts(ctx, general)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, entity.AlertPriorityHigh, open[0].Priority)
	assert.True(t, open[0].QuantityAtTrigger.Equal(qty(4)))
	assert.True(t, open[0].MinimumThreshold.Equal(qty(10)))
	require.Len(t, f.notifier.opened, 1)
	assert.Equal(t, open[0].ID, f.notifier.opened[0].ID)

	// sigue por debajo: no se duplica
	_, err = f.transfers.Transfer(ctx, general, provisional, gasa, qty(4), actor, "")
	require.NoError(t, err)
	open, err = f.alerts.GetActiveAlerts(ctx, general)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Len(t, f.notifier.opened, 1)

	f.receive(t, general, gasa, 10)
	open, err = f.alerts.GetActiveAlerts(ctx, general)
	require.NoError(t, err)
	assert.Empty(t, open, "al llegar al mínimo la alerta queda resuelta")
}

func TestAlertas_PrioridadCriticaConStockCero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, provisional, sutura, 3)
	_, err := f.alerts.SetMinimumThreshold(ctx, ledger.SetThresholdInputDTO{Location: provisional, ItemID: sutura, Minimum: qty(2)})
	require.NoError(t, err)

	_, err = f.consumption.ConsumeForProcedure(ctx, ledger.ConsumeInputDTO{
		WarehouseID: provisional, ProcedureID: "proc-5",
		Items: []ledger.ItemQuantity{{ItemID: sutura, Quantity: qty(3)}},
	})
	require.NoError(t, err)

	open, err := f.alerts.GetActiveAlerts(ctx, "")
	require.NoError(t, err)
	require.Len(t, open, 1, "el sumidero de consumo no genera alertas")
	assert.Equal(t, provisional, open[0].Location)
	assert.Equal(t, entity.AlertPriorityCritical, open[0].Priority)
}

func TestAlertas_TransicionesDeEstado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.alerts.SetMinimumThreshold(ctx, ledger.SetThresholdInputDTO{Location: general, ItemID: guante, Minimum: qty(5)})
	require.NoError(t, err)
	open, err := f.alerts.GetActiveAlerts(ctx, general)
	require.NoError(t, err)
	require.Len(t, open, 1)
	id := open[0].ID

	a, err := f.alerts.UpdateAlertState(ctx, id, entity.AlertStateInProcess)
	require.NoError(t, err)
	assert.Equal(t, entity.AlertStateInProcess, a.State)

	_, err = f.alerts.UpdateAlertState(ctx, id, entity.AlertStateActive)
	assert.ErrorIs(t, err, domain.ErrConflict, "nunca hacia atrás")

	// en proceso sigue contando como abierta: una nueva baja no abre otra
	f.receive(t, general, guante, 1)
	open, err = f.alerts.GetActiveAlerts(ctx, general)
	require.NoError(t, err)
	require.Len(t, open, 1)

	a, err = f.alerts.UpdateAlertState(ctx, id, entity.AlertStateResolved)
	require.NoError(t, err)
	assert.NotNil(t, a.ResolvedAt)

	_, err = f.alerts.UpdateAlertState(ctx, "no-existe", entity.AlertStateResolved)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetMinimumThreshold_Valida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.alerts.SetMinimumThreshold(ctx, ledger.SetThresholdInputDTO{Location: general, ItemID: gasa, Minimum: qty(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.alerts.SetMinimumThreshold(ctx, ledger.SetThresholdInputDTO{Location: "general:h-404", ItemID: gasa, Minimum: qty(1)})
	var unknown *domain.UnknownLocationError
	assert.True(t, errors.As(err, &unknown))
}

// failingAlerts repositorio de alertas que siempre falla al escribir.
type failingAlerts struct{ repository.AlertRepository }

func (failingAlerts) FindOpen(context.Context, string, string) (*entity.Alert, error) { return nil, nil }
func (failingAlerts) Create(context.Context, *entity.Alert) error {
	return errors.New("disco lleno")
}

// Un fallo al escribir la alerta no revierte la mutación de stock.
func TestThresholdAlertGenerator_FalloDeEscrituraNoSePropaga(t *testing.T) {
	g := ledger.NewThresholdAlertGenerator(nil)
	st := &entity.ConsolidatedStock{Location: general, ItemID: gasa, QuantityTotal: qty(1), MinimumThreshold: qty(5)}
	assert.NotPanics(t, func() {
		a := g.Reevaluate(context.Background(), failingAlerts{}, st, time.Now())
		assert.Nil(t, a)
	})
}
