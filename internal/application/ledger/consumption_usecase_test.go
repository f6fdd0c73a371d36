package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// ConsumeForProcedure
// ──────────────────────────────────────────────────────────────────────────────

func TestConsumeForProcedure_DebitaLotesEnOrdenFIFO(t *testing.T) {
	f := newFixture(t)
	lot1 := f.receive(t, provisional, gasa, 5)
	lot2 := f.receive(t, provisional, gasa, 10)

	res, err := f.consumption.ConsumeForProcedure(context.Background(), ledger.ConsumeInputDTO{
		WarehouseID: provisional,
		ProcedureID: "proc-1",
		Items:       []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(8)}},
		ActorID:     "u-qx",
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	debits := res.Lines[0].Debits
	require.Len(t, debits, 2)
	assert.Equal(t, lot1, debits[0].LotID)
	assert.True(t, debits[0].Amount.Equal(qty(5)))
	assert.Equal(t, lot2, debits[1].LotID)
	assert.True(t, debits[1].Amount.Equal(qty(3)))

	assert.True(t, f.stock(t, provisional, gasa).Equal(qty(7)))
	assert.True(t, f.stock(t, entity.Consumed("proc-1").Key(), gasa).Equal(qty(8)))

	lots, err := f.queries.GetLots(context.Background(), provisional)
	require.NoError(t, err)
	require.Len(t, lots, 1, "Lot1 queda en cero e inerte")
	assert.Equal(t, lot2, lots[0].ID)
	assert.True(t, lots[0].QuantityRemaining.Equal(qty(7)))

	// un registro de consumo por lote debitado
	recs := f.history(t, entity.MovementFilter{Location: provisional, ProcedureID: "proc-1"})
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, entity.MovementKindConsumption, r.Kind)
		assert.True(t, r.QuantityDelta.IsNegative())
		assert.Equal(t, entity.Consumed("proc-1").Key(), r.CounterLocation)
	}
	f.requireReconciled(t)
}

// Si a B le falta una sola unidad, el consumo de A del mismo procedimiento no se aplica.
func TestConsumeForProcedure_TodoONada(t *testing.T) {
	f := newFixture(t)
	f.receive(t, provisional, gasa, 10)
	f.receive(t, provisional, sutura, 4)

	_, err := f.consumption.ConsumeForProcedure(context.Background(), ledger.ConsumeInputDTO{
		WarehouseID: provisional,
		ProcedureID: "proc-2",
		Items: []ledger.ItemQuantity{
			{ItemID: gasa, Quantity: qty(3)},
			{ItemID: sutura, Quantity: qty(5)},
		},
	})
	require.Error(t, err)
	shortages := domain.ShortageDetails(err)
	require.Len(t, shortages, 1)
	assert.Equal(t, sutura, shortages[0].ItemID)
	assert.True(t, shortages[0].Available.Equal(qty(4)))
	assert.True(t, shortages[0].Required.Equal(qty(5)))
	assert.True(t, shortages[0].Shortfall().Equal(qty(1)))

	assert.True(t, f.stock(t, provisional, gasa).Equal(qty(10)), "A no debe descontarse")
	assert.True(t, f.stock(t, provisional, sutura).Equal(qty(4)))
	assert.Empty(t, f.history(t, entity.MovementFilter{ProcedureID: "proc-2"}))

	// el procedimiento no quedó registrado: puede reintentarse con la lista corregida
	_, err = f.consumption.ConsumeForProcedure(context.Background(), ledger.ConsumeInputDTO{
		WarehouseID: provisional,
		ProcedureID: "proc-2",
		Items:       []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(3)}, {ItemID: sutura, Quantity: qty(4)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.metrics.failed["consume"])
	assert.Equal(t, 1, f.metrics.ok["consume"])
}

func TestConsumeForProcedure_NoSustituyeDesdeOtraUbicacion(t *testing.T) {
	f := newFixture(t)
	f.receive(t, general, gasa, 100)

	_, err := f.consumption.ConsumeForProcedure(context.Background(), ledger.ConsumeInputDTO{
		WarehouseID: provisional,
		ProcedureID: "proc-3",
		Items:       []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(1)}},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, f.stock(t, general, gasa).Equal(qty(100)))
}

func TestConsumeForProcedure_ProcedimientoRepetidoEsConflicto(t *testing.T) {
	f := newFixture(t)
	f.receive(t, provisional, gasa, 10)
	in := ledger.ConsumeInputDTO{
		WarehouseID: provisional,
		ProcedureID: "proc-4",
		Items:       []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(2)}},
	}
	_, err := f.consumption.ConsumeForProcedure(context.Background(), in)
	require.NoError(t, err)

	_, err = f.consumption.ConsumeForProcedure(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, f.stock(t, provisional, gasa).Equal(qty(8)))
}

func TestConsumeForProcedure_ValidaEntrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.consumption.ConsumeForProcedure(ctx, ledger.ConsumeInputDTO{WarehouseID: general, ProcedureID: "p", Items: []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(1)}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "solo desde provisionales")

	_, err = f.consumption.ConsumeForProcedure(ctx, ledger.ConsumeInputDTO{WarehouseID: provisional, ProcedureID: "p", Items: []ledger.ItemQuantity{{ItemID: "no-existe", Quantity: qty(1)}}})
	var unknown *domain.UnknownItemError
	assert.True(t, errors.As(err, &unknown))

	_, err = f.consumption.ConsumeForProcedure(ctx, ledger.ConsumeInputDTO{WarehouseID: "provisional:fantasma", ProcedureID: "p", Items: []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(1)}}})
	var unknownLoc *domain.UnknownLocationError
	assert.True(t, errors.As(err, &unknownLoc))

	_, err = f.consumption.ConsumeForProcedure(ctx, ledger.ConsumeInputDTO{WarehouseID: provisional, ProcedureID: "p", Items: []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(0)}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// RefundProcedure
// ──────────────────────────────────────────────────────────────────────────────

func TestRefundProcedure_RestauraElStockConLoteNuevo(t *testing.T) {
	f := newFixture(t)
	lot1 := f.receive(t, provisional, gasa, 5)
	lot2 := f.receive(t, provisional, gasa, 10)
	before := f.stock(t, provisional, gasa)

	_, err := f.consumption.ConsumeForProcedure(context.Background(), ledger.ConsumeInputDTO{
		WarehouseID: provisional, ProcedureID: "proc-1",
		Items: []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(8)}},
	})
	require.NoError(t, err)

	res, err := f.consumption.RefundProcedure(context.Background(), "proc-1", "u-qx")
	require.NoError(t, err)
	assert.Equal(t, provisional, res.Location)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Quantity.Equal(qty(8)))
	assert.NotEqual(t, lot1, res.Lines[0].LotID)
	assert.NotEqual(t, lot2, res.Lines[0].LotID)

	assert.True(t, f.stock(t, provisional, gasa).Equal(before))
	assert.True(t, f.stock(t, entity.Consumed("proc-1").Key(), gasa).IsZero())

	lots, err := f.queries.GetLots(context.Background(), provisional)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	// el lote devuelto entra al final de la cola FIFO
	assert.Equal(t, lot2, lots[0].ID)
	assert.Equal(t, res.Lines[0].LotID, lots[1].ID)
	assert.Equal(t, "refund:proc-1", lots[1].OriginRef)

	refunds := f.history(t, entity.MovementFilter{Location: provisional, ProcedureID: "proc-1"})
	var credited int
	for _, r := range refunds {
		if r.Kind == entity.MovementKindRefund {
			credited++
			assert.True(t, r.QuantityDelta.Equal(qty(8)))
		}
	}
	assert.Equal(t, 1, credited)
	f.requireReconciled(t)
}

func TestRefundProcedure_SegundoReembolsoNoAcreditaDosVeces(t *testing.T) {
	f := newFixture(t)
	f.receive(t, provisional, gasa, 10)
	_, err := f.consumption.ConsumeForProcedure(context.Background(), ledger.ConsumeInputDTO{
		WarehouseID: provisional, ProcedureID: "proc-1",
		Items: []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(4)}},
	})
	require.NoError(t, err)

	_, err = f.consumption.RefundProcedure(context.Background(), "proc-1", "u-qx")
	require.NoError(t, err)
	_, err = f.consumption.RefundProcedure(context.Background(), "proc-1", "u-qx")
	assert.ErrorIs(t, err, domain.ErrAlreadyRefunded)

	assert.True(t, f.stock(t, provisional, gasa).Equal(qty(10)))
}

func TestRefundProcedure_Desconocido(t *testing.T) {
	f := newFixture(t)
	_, err := f.consumption.RefundProcedure(context.Background(), "no-existe", "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefundProcedure_ProvisionalDadoDeBajaDevuelveAlGeneral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, provisional, gasa, 6)
	_, err := f.consumption.ConsumeForProcedure(ctx, ledger.ConsumeInputDTO{
		WarehouseID: provisional, ProcedureID: "proc-9",
		Items: []ledger.ItemQuantity{{ItemID: gasa, Quantity: qty(6)}},
	})
	require.NoError(t, err)
	_, err = f.decommission.DecommissionWarehouse(ctx, ledger.DecommissionInputDTO{WarehouseID: provisional, Policy: ledger.DecommissionReturnAll})
	require.NoError(t, err)

	res, err := f.consumption.RefundProcedure(ctx, "proc-9", "u-qx")
	require.NoError(t, err)
	assert.Equal(t, general, res.Location)
	assert.True(t, f.stock(t, general, gasa).Equal(qty(6)))
	f.requireReconciled(t)
}
