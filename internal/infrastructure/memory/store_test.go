package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/memory"
)

var now = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func TestRun_ErrorDescartaTodoLoEscrito(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Run(ctx, func(ctx context.Context, r ledger.Repositories) error {
		require.NoError(t, r.Lots.Create(ctx, &entity.Lot{ID: "l-1", Location: "central", ItemID: "x", QuantityRemaining: decimal.NewFromInt(3), EnteredAt: now}))
		require.NoError(t, r.Movements.Append(ctx, &entity.MovementRecord{ID: "m-1", Location: "central", ItemID: "x", QuantityDelta: decimal.NewFromInt(3)}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.Run(ctx, func(ctx context.Context, r ledger.Repositories) error {
		lots, err := r.Lots.ListByLocation(ctx, "central")
		assert.Empty(t, lots)
		sum, _ := r.Movements.SumDelta(ctx, "central", "x")
		assert.True(t, sum.IsZero())
		return err
	})
	require.NoError(t, err)
}

func TestRun_CancelacionDuranteLaTransaccionNoPublica(t *testing.T) {
	s := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Run(ctx, func(ctx context.Context, r ledger.Repositories) error {
		cancel()
		return r.Warehouses.Create(ctx, &entity.Warehouse{Location: entity.CentralWarehouse(), Active: true})
	})
	assert.ErrorIs(t, err, context.Canceled)

	err = s.Run(context.Background(), func(ctx context.Context, r ledger.Repositories) error {
		wh, err := r.Warehouses.Get(ctx, "central")
		assert.Nil(t, wh)
		return err
	})
	require.NoError(t, err)
}

func TestMovements_SeqCreceYElLibroAnteriorNoCambia(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Run(ctx, func(ctx context.Context, r ledger.Repositories) error {
			return r.Movements.Append(ctx, &entity.MovementRecord{Location: "central", ItemID: "x", QuantityDelta: decimal.NewFromInt(1)})
		}))
	}
	// una transacción abortada que agrega registros no afecta lo ya publicado
	_ = s.Run(ctx, func(ctx context.Context, r ledger.Repositories) error {
		_ = r.Movements.Append(ctx, &entity.MovementRecord{Location: "central", ItemID: "x", QuantityDelta: decimal.NewFromInt(100)})
		return errors.New("abort")
	})
	require.NoError(t, s.Run(ctx, func(ctx context.Context, r ledger.Repositories) error {
		recs, err := r.Movements.History(ctx, entity.MovementFilter{Location: "central"})
		require.Len(t, recs, 3)
		for i, rec := range recs {
			assert.Equal(t, int64(i+1), rec.Seq)
		}
		return err
	}))
}

func TestAlerts_UnaSolaAbiertaPorPar(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	err := s.Run(ctx, func(ctx context.Context, r ledger.Repositories) error {
		a := &entity.Alert{ID: "a-1", Location: "central", ItemID: "x", State: entity.AlertStateActive}
		require.NoError(t, r.Alerts.Create(ctx, a))
		err := r.Alerts.Create(ctx, &entity.Alert{ID: "a-2", Location: "central", ItemID: "x", State: entity.AlertStateActive})
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		require.NoError(t, r.Alerts.UpdateState(ctx, "a-1", entity.AlertStateResolved, now))
		return r.Alerts.Create(ctx, &entity.Alert{ID: "a-3", Location: "central", ItemID: "x", State: entity.AlertStateActive})
	})
	require.NoError(t, err)
}

func TestStock_NuncaNegativo(t *testing.T) {
	s := memory.NewStore()
	err := s.Run(context.Background(), func(ctx context.Context, r ledger.Repositories) error {
		st, err := r.Stock.GetForUpdate(ctx, "central", "x")
		require.NoError(t, err)
		st.QuantityTotal = decimal.NewFromInt(-1)
		return r.Stock.Upsert(ctx, st)
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
