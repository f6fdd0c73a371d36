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
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestGetMovementHistory_PaginaEnOrdenDeLibro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.receive(t, general, gasa, int64(i+1))
	}

	page, err := f.queries.GetMovementHistory(ctx, entity.MovementFilter{Location: general, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.True(t, page.HasMore)
	assert.Less(t, page.Records[0].Seq, page.Records[1].Seq)
	assert.True(t, page.Records[0].QuantityDelta.Equal(qty(1)))

	page, err = f.queries.GetMovementHistory(ctx, entity.MovementFilter{Location: general, Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.False(t, page.HasMore)
	assert.True(t, page.Records[0].QuantityDelta.Equal(qty(5)))

	page, err = f.queries.GetMovementHistory(ctx, entity.MovementFilter{Location: general, Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, ledger.MaxHistoryLimit, page.Limit)

	page, err = f.queries.GetMovementHistory(ctx, entity.MovementFilter{Location: general})
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultHistoryLimit, page.Limit)
}

func TestGetMovementHistory_FiltraPorFechas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, general, gasa, 1)
	f.receive(t, general, gasa, 2)
	all := f.history(t, entity.MovementFilter{Location: general})
	require.Len(t, all, 2)

	since := all[1].Timestamp
	page, err := f.queries.GetMovementHistory(ctx, entity.MovementFilter{Location: general, Since: &since})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, all[1].ID, page.Records[0].ID)

	until := all[0].Timestamp
	_, err = f.queries.GetMovementHistory(ctx, entity.MovementFilter{Location: general, Since: &since, Until: &until})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.queries.GetMovementHistory(ctx, entity.MovementFilter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetConsolidatedStock_TodosLosInsumosDeUnaUbicacion(t *testing.T) {
	f := newFixture(t)
	f.receive(t, general, sutura, 2)
	f.receive(t, general, gasa, 3)

	rows, err := f.queries.GetConsolidatedStock(context.Background(), general, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, gasa, rows[0].ItemID)
	assert.Equal(t, sutura, rows[1].ItemID)

	_, err = f.queries.GetConsolidatedStock(context.Background(), "bodega", "")
	var unknown *domain.UnknownLocationError
	assert.True(t, errors.As(err, &unknown))
}

// ──────────────────────────────────────────────────────────────────────────────
// Ubicaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterLocation_Reglas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.locations.RegisterLocation(ctx, ledger.RegisterLocationInputDTO{Kind: entity.LocationKindCentral})
	assert.ErrorIs(t, err, domain.ErrDuplicate, "el central es único")

	_, err = f.locations.RegisterLocation(ctx, ledger.RegisterLocationInputDTO{Kind: entity.LocationKindGeneral, HospitalID: hospital})
	assert.ErrorIs(t, err, domain.ErrDuplicate, "un general por hospital")

	_, err = f.locations.RegisterLocation(ctx, ledger.RegisterLocationInputDTO{Kind: entity.LocationKindProvisional, ID: "qx-9", HospitalID: "h-sin-general"})
	var unknown *domain.UnknownLocationError
	assert.True(t, errors.As(err, &unknown))

	_, err = f.locations.RegisterLocation(ctx, ledger.RegisterLocationInputDTO{Kind: entity.LocationKindProvisional, ID: "qx-9"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.locations.RegisterLocation(ctx, ledger.RegisterLocationInputDTO{Kind: entity.LocationKindConsumed, ID: "p-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	wh, err := f.locations.RegisterLocation(ctx, ledger.RegisterLocationInputDTO{Kind: entity.LocationKindProvisional, ID: "qx-2", HospitalID: hospital})
	require.NoError(t, err)
	assert.Equal(t, "provisional:qx-2", wh.Key())
	assert.Equal(t, "provisional:qx-2", wh.Name)
	assert.True(t, wh.Active)
}

func TestDeactivateLocation_SoloSinStockYNoProvisionales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, central, gasa, 1)

	err := f.locations.DeactivateLocation(ctx, central)
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = f.locations.DeactivateLocation(ctx, provisional)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.transfers.Transfer(ctx, central, general, gasa, qty(1), actor, "")
	require.NoError(t, err)
	require.NoError(t, f.locations.DeactivateLocation(ctx, central))

	wh, err := f.locations.GetLocation(ctx, central)
	require.NoError(t, err)
	assert.False(t, wh.Active)
}

func TestGetConsolidatedStock_SinUbicacionListaTodasLasUbicaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, general, gasa, 10)
	f.receive(t, central, gasa, 4)
	f.receive(t, general, sutura, 2)
	_, err := f.transfers.Transfer(ctx, general, provisional, gasa, qty(3), actor, "")
	require.NoError(t, err)

	rows, err := f.queries.GetConsolidatedStock(ctx, "", gasa)
	require.NoError(t, err)
	byLocation := map[string]string{}
	for _, r := range rows {
		assert.Equal(t, gasa, r.ItemID)
		byLocation[r.Location] = r.QuantityTotal.String()
	}
	assert.Equal(t, map[string]string{general: "7", provisional: "3", central: "4"}, byLocation)

	rows, err = f.queries.GetConsolidatedStock(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	_, err = f.queries.GetConsolidatedStock(ctx, "bodega-x", "")
	var unknown *domain.UnknownLocationError
	assert.True(t, errors.As(err, &unknown))
}
