package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/memory"
)

const (
	hospital    = "h-1"
	general     = "general:h-1"
	provisional = "provisional:qx-1"
	central     = "central"

	gasa   = "gasa-esteril"
	sutura = "sutura-3-0"
	guante = "guante-7"
	actor  = "u-almacen"
)

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// clock reloj de prueba: cada lectura avanza un minuto para que los lotes queden ordenados.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

type recordingNotifier struct {
	mu         sync.Mutex
	opened     []entity.Alert
	violations []domain.IntegrityViolationError
}

func (n *recordingNotifier) AlertOpened(_ context.Context, a entity.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opened = append(n.opened, a)
}

func (n *recordingNotifier) IntegrityViolation(_ context.Context, v domain.IntegrityViolationError) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.violations = append(n.violations, v)
}

type countingMetrics struct {
	mu     sync.Mutex
	ok     map[string]int
	failed map[string]int
}

func (m *countingMetrics) ObserveOperation(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed[op]++
		return
	}
	m.ok[op]++
}

// fixture un hospital con su general, un provisional y el central, sobre el almacén en memoria.
type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	metrics  *countingMetrics

	locations    *ledger.LocationUseCase
	receipts     *ledger.ReceiptUseCase
	transfers    *ledger.TransferUseCase
	consumption  *ledger.ConsumptionUseCase
	decommission *ledger.DecommissionUseCase
	alerts       *ledger.AlertUseCase
	queries      *ledger.QueryUseCase
	reconcile    *ledger.ReconcileUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddCatalogItems(gasa, sutura, guante)
	f := &fixture{
		store:    store,
		notifier: &recordingNotifier{},
		metrics:  &countingMetrics{ok: map[string]int{}, failed: map[string]int{}},
	}
	deps := ledger.Deps{
		TxRunner: store,
		Catalog:  store,
		Notifier: f.notifier,
		Metrics:  f.metrics,
		Now:      (&clock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}).Now,
	}
	f.locations = ledger.NewLocationUseCase(deps)
	f.receipts = ledger.NewReceiptUseCase(deps)
	f.transfers = ledger.NewTransferUseCase(deps)
	f.consumption = ledger.NewConsumptionUseCase(deps)
	f.decommission = ledger.NewDecommissionUseCase(deps)
	f.alerts = ledger.NewAlertUseCase(deps)
	f.queries = ledger.NewQueryUseCase(deps)
	f.reconcile = ledger.NewReconcileUseCase(deps)

	ctx := context.Background()
	_, err := f.locations.RegisterLocation(ctx, ledger.RegisterLocationInputDTO{Kind: entity.LocationKindGeneral, HospitalID: hospital, Name: "General H1"})
	require.NoError(t, err)
	_, err = f.locations.RegisterLocation(ctx, ledger.RegisterLocationInputDTO{Kind: entity.LocationKindProvisional, ID: "qx-1", HospitalID: hospital, Name: "Quirófano 1"})
	require.NoError(t, err)
	_, err = f.locations.RegisterLocation(ctx, ledger.RegisterLocationInputDTO{Kind: entity.LocationKindCentral, Name: "Central"})
	require.NoError(t, err)
	return f
}

func (f *fixture) receive(t *testing.T, location, item string, n int64) string {
	t.Helper()
	res, err := f.receipts.ReceiveStock(context.Background(), ledger.ReceiveInputDTO{
		Location: location, ItemID: item, Quantity: qty(n), ActorID: actor, Reference: "OC-1",
	})
	require.NoError(t, err)
	require.Len(t, res.LotIDs, 1)
	return res.LotIDs[0]
}

func (f *fixture) stock(t *testing.T, location, item string) decimal.Decimal {
	t.Helper()
	rows, err := f.queries.GetConsolidatedStock(context.Background(), location, item)
	require.NoError(t, err)
	if len(rows) == 0 {
		return decimal.Zero
	}
	require.Len(t, rows, 1)
	return rows[0].QuantityTotal
}

func (f *fixture) history(t *testing.T, filter entity.MovementFilter) []*entity.MovementRecord {
	t.Helper()
	filter.Limit = ledger.MaxHistoryLimit
	page, err := f.queries.GetMovementHistory(context.Background(), filter)
	require.NoError(t, err)
	return page.Records
}

// requireReconciled verifica que cada par cuadre contra lotes y libro.
func (f *fixture) requireReconciled(t *testing.T) {
	t.Helper()
	report, err := f.reconcile.Reconcile(context.Background(), "", "")
	require.NoError(t, err)
	require.Empty(t, report.Violations)
}

// totalAcrossLocations suma del consolidado de un insumo en todas las ubicaciones, sumidero incluido.
func (f *fixture) totalAcrossLocations(t *testing.T, item string) decimal.Decimal {
	t.Helper()
	total := decimal.Zero
	err := f.store.Run(context.Background(), func(ctx context.Context, repos ledger.Repositories) error {
		rows, err := repos.Stock.List(ctx, "", item)
		for _, r := range rows {
			require.False(t, r.QuantityTotal.IsNegative(), "stock negativo en %s", r.Location)
			total = total.Add(r.QuantityTotal)
		}
		return err
	})
	require.NoError(t, err)
	return total
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}
