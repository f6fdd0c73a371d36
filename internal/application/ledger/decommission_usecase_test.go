package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// DecommissionWarehouse
// ──────────────────────────────────────────────────────────────────────────────

func TestDecommission_ReturnAllUnaEntradaPorInsumoEnElGeneral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// gasa en dos lotes para comprobar que el general recibe un único transfer-in
	f.receive(t, provisional, gasa, 3)
	f.receive(t, provisional, gasa, 4)
	f.receive(t, provisional, sutura, 2)
	f.receive(t, provisional, guante, 9)

	res, err := f.decommission.DecommissionWarehouse(ctx, ledger.DecommissionInputDTO{
		WarehouseID: provisional,
		Policy:      ledger.DecommissionReturnAll,
		ActorID:     actor,
	})
	require.NoError(t, err)
	assert.Equal(t, general, res.ReturnedTo)
	require.Len(t, res.Lines, 3)

	recs := f.history(t, entity.MovementFilter{Location: general})
	perItem := map[string]int{}
	for _, r := range recs {
		if r.Kind == entity.MovementKindTransferIn && r.CounterLocation == provisional {
			perItem[r.ItemID]++
		}
	}
	assert.Equal(t, map[string]int{gasa: 1, sutura: 1, guante: 1}, perItem)

	for _, item := range []string{gasa, sutura, guante} {
		assert.True(t, f.stock(t, provisional, item).IsZero(), item)
	}
	assert.True(t, f.stock(t, general, gasa).Equal(qty(7)))

	wh, err := f.locations.GetLocation(ctx, provisional)
	require.NoError(t, err)
	assert.False(t, wh.Active)
	assert.NotNil(t, wh.DeactivatedAt)
	f.requireReconciled(t)
}

func TestDecommission_ReturnAllSinGeneralActivoAbortaYQuedaActivo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, provisional, gasa, 3)

	// se desactiva el general vacío: la devolución ya no tiene destino
	require.NoError(t, f.locations.DeactivateLocation(ctx, general))

	_, err := f.decommission.DecommissionWarehouse(ctx, ledger.DecommissionInputDTO{WarehouseID: provisional, Policy: ledger.DecommissionReturnAll})
	assert.ErrorIs(t, err, domain.ErrLocationInactive)

	wh, err := f.locations.GetLocation(ctx, provisional)
	require.NoError(t, err)
	assert.True(t, wh.Active)
	assert.True(t, f.stock(t, provisional, gasa).Equal(qty(3)))
}

func TestDecommission_DiscardEscribeAjustesYDescuentaDelTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, provisional, gasa, 3)
	f.receive(t, provisional, gasa, 4)

	_, err := f.decommission.DecommissionWarehouse(ctx, ledger.DecommissionInputDTO{WarehouseID: provisional, Policy: ledger.DecommissionDiscard})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "el descarte exige motivo")

	res, err := f.decommission.DecommissionWarehouse(ctx, ledger.DecommissionInputDTO{
		WarehouseID: provisional,
		Policy:      ledger.DecommissionDiscard,
		Reason:      "contaminación del quirófano",
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Quantity.Equal(qty(7)))

	recs := f.history(t, entity.MovementFilter{Location: provisional, ItemID: gasa})
	var adjustments int
	for _, r := range recs {
		if r.Kind == entity.MovementKindAdjustment {
			adjustments++
			assert.Contains(t, r.ReasonText, "contaminación del quirófano")
			assert.True(t, r.QuantityDelta.IsNegative())
		}
	}
	assert.Equal(t, 2, adjustments, "un ajuste por lote restante")
	assert.True(t, f.stock(t, general, gasa).IsZero(), "no es un traslado")
	assert.True(t, f.totalAcrossLocations(t, gasa).IsZero())
	f.requireReconciled(t)
}

func TestDecommission_SinStockSeDaDeBajaDirecto(t *testing.T) {
	f := newFixture(t)
	res, err := f.decommission.DecommissionWarehouse(context.Background(), ledger.DecommissionInputDTO{WarehouseID: provisional, Policy: ledger.DecommissionDiscard, Reason: "cierre"})
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
	assert.Empty(t, f.history(t, entity.MovementFilter{Location: provisional}))

	_, err = f.decommission.DecommissionWarehouse(context.Background(), ledger.DecommissionInputDTO{WarehouseID: provisional, Policy: ledger.DecommissionReturnAll})
	assert.ErrorIs(t, err, domain.ErrLocationInactive)
}

func TestDecommission_SoloProvisionales(t *testing.T) {
	f := newFixture(t)
	_, err := f.decommission.DecommissionWarehouse(context.Background(), ledger.DecommissionInputDTO{WarehouseID: general, Policy: ledger.DecommissionReturnAll})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.decommission.DecommissionWarehouse(context.Background(), ledger.DecommissionInputDTO{WarehouseID: provisional, Policy: "vender"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDecommission_ResuelveLasAlertasAbiertasDelProvisional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.alerts.SetMinimumThreshold(ctx, ledger.SetThresholdInputDTO{Location: provisional, ItemID: gasa, Minimum: qty(10)})
	require.NoError(t, err)
	f.receive(t, provisional, gasa, 2)

	open, err := f.alerts.GetActiveAlerts(ctx, provisional)
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = f.decommission.DecommissionWarehouse(ctx, ledger.DecommissionInputDTO{WarehouseID: provisional, Policy: ledger.DecommissionReturnAll})
	require.NoError(t, err)

	open, err = f.alerts.GetActiveAlerts(ctx, provisional)
	require.NoError(t, err)
	assert.Empty(t, open)
}
