package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
)

// session estado de una única operación lógica dentro de una transacción. Es el único
// lugar que muta lotes, stock consolidado y libro; se crea de nuevo en cada intento del TxRunner.
type session struct {
	repos   Repositories
	alerts  *ThresholdAlertGenerator
	txID    string
	now     time.Time
	actorID string

	stock      map[pairKey]*entity.ConsolidatedStock
	touched    []pairKey
	skipAlerts map[string]bool
	opened     []entity.Alert
}

type pairKey struct {
	location string
	itemID   string
}

// recordSpec datos comunes de los registros que genera un débito o crédito.
type recordSpec struct {
	kind            string
	counterLocation string
	reason          string
	procedureID     string
}

func newSession(repos Repositories, alerts *ThresholdAlertGenerator, now time.Time, actorID string) *session {
	return &session{
		repos:      repos,
		alerts:     alerts,
		txID:       uuid.New().String(),
		now:        now,
		actorID:    actorID,
		stock:      make(map[pairKey]*entity.ConsolidatedStock),
		skipAlerts: make(map[string]bool),
	}
}

// requireWarehouse valida que la ubicación exista en el maestro y esté activa.
// El sumidero de consumo no es una ubicación válida aquí.
func (s *session) requireWarehouse(ctx context.Context, key string, forUpdate bool) (*entity.Warehouse, error) {
	loc, err := entity.ParseLocation(key)
	if err != nil || loc.IsSink() {
		return nil, &domain.UnknownLocationError{Location: key}
	}
	var wh *entity.Warehouse
	if forUpdate {
		wh, err = s.repos.Warehouses.GetForUpdate(ctx, loc.Key())
	} else {
		wh, err = s.repos.Warehouses.Get(ctx, loc.Key())
	}
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, &domain.UnknownLocationError{Location: key}
	}
	if !wh.Active {
		return nil, fmt.Errorf("%w: %s", domain.ErrLocationInactive, key)
	}
	return wh, nil
}

// lockPairs bloquea las filas de stock consolidado en orden (ubicación, insumo) para evitar
// interbloqueos entre transacciones que cruzan las mismas ubicaciones en sentido contrario.
func (s *session) lockPairs(ctx context.Context, pairs []pairKey) error {
	sorted := append([]pairKey(nil), pairs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].location != sorted[j].location {
			return sorted[i].location < sorted[j].location
		}
		return sorted[i].itemID < sorted[j].itemID
	})
	for _, p := range sorted {
		if _, err := s.lockStock(ctx, p.location, p.itemID); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) lockStock(ctx context.Context, location, itemID string) (*entity.ConsolidatedStock, error) {
	key := pairKey{location, itemID}
	if st, ok := s.stock[key]; ok {
		return st, nil
	}
	st, err := s.repos.Stock.GetForUpdate(ctx, location, itemID)
	if err != nil {
		return nil, err
	}
	if st.Frozen {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrPairFrozen, location, itemID)
	}
	s.stock[key] = st
	return st, nil
}

// plan calcula el plan FIFO sobre los lotes bloqueados. Devuelve también los lotes por ID
// para aplicar el débito sin volver a leerlos.
func (s *session) plan(ctx context.Context, location, itemID string, qty decimal.Decimal) (*inventory.AllocationPlan, map[string]*entity.Lot, error) {
	if _, err := s.lockStock(ctx, location, itemID); err != nil {
		return nil, nil, err
	}
	lots, err := s.repos.Lots.ListAvailable(ctx, location, itemID)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]*entity.Lot, len(lots))
	for _, l := range lots {
		byID[l.ID] = l
	}
	p, err := inventory.Allocate(location, itemID, lots, qty)
	if err != nil {
		return nil, nil, err
	}
	return p, byID, nil
}

// available cantidad disponible según los lotes (fuente de verdad del allocator).
func (s *session) available(ctx context.Context, location, itemID string) (decimal.Decimal, error) {
	if _, err := s.lockStock(ctx, location, itemID); err != nil {
		return decimal.Zero, err
	}
	lots, err := s.repos.Lots.ListAvailable(ctx, location, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	return inventory.Available(lots), nil
}

// applyDebit descuenta cada lote del plan, escribe un registro por lote y decrementa el
// consolidado. Devuelve el vencimiento más próximo de los lotes debitados.
func (s *session) applyDebit(ctx context.Context, p *inventory.AllocationPlan, lots map[string]*entity.Lot, spec recordSpec) (*time.Time, error) {
	st, err := s.lockStock(ctx, p.Location, p.ItemID)
	if err != nil {
		return nil, err
	}
	if st.QuantityTotal.LessThan(p.Total) {
		return nil, &domain.InsufficientStockError{Location: p.Location, ItemID: p.ItemID, Available: st.QuantityTotal, Required: p.Total}
	}
	var expiry *time.Time
	for _, d := range p.Debits {
		l, ok := lots[d.LotID]
		if !ok {
			return nil, fmt.Errorf("lote %s fuera del plan", d.LotID)
		}
		l.QuantityRemaining = l.QuantityRemaining.Sub(d.Amount)
		if l.QuantityRemaining.IsNegative() {
			return nil, fmt.Errorf("lote %s quedaría negativo", l.ID)
		}
		if err := s.repos.Lots.UpdateQuantity(ctx, l.ID, l.QuantityRemaining); err != nil {
			return nil, err
		}
		expiry = entity.EarliestExpiry(expiry, l.ExpiresAt)
		if err := s.appendRecord(ctx, p.Location, p.ItemID, l.ID, d.Amount.Neg(), spec); err != nil {
			return nil, err
		}
	}
	st.QuantityTotal = st.QuantityTotal.Sub(p.Total)
	st.UpdatedAt = s.now
	if err := s.repos.Stock.Upsert(ctx, st); err != nil {
		return nil, err
	}
	s.touch(st)
	return expiry, nil
}

// debitLot descuenta una cantidad de un lote concreto (fuera del orden FIFO: descarte de lotes).
func (s *session) debitLot(ctx context.Context, l *entity.Lot, amount decimal.Decimal, spec recordSpec) error {
	st, err := s.lockStock(ctx, l.Location, l.ItemID)
	if err != nil {
		return err
	}
	if amount.GreaterThan(l.QuantityRemaining) || amount.GreaterThan(st.QuantityTotal) {
		return &domain.InsufficientStockError{Location: l.Location, ItemID: l.ItemID, Available: l.QuantityRemaining, Required: amount}
	}
	l.QuantityRemaining = l.QuantityRemaining.Sub(amount)
	if err := s.repos.Lots.UpdateQuantity(ctx, l.ID, l.QuantityRemaining); err != nil {
		return err
	}
	if err := s.appendRecord(ctx, l.Location, l.ItemID, l.ID, amount.Neg(), spec); err != nil {
		return err
	}
	st.QuantityTotal = st.QuantityTotal.Sub(amount)
	st.UpdatedAt = s.now
	if err := s.repos.Stock.Upsert(ctx, st); err != nil {
		return err
	}
	s.touch(st)
	return nil
}

// creditInput describe una entrada de stock en una ubicación.
type creditInput struct {
	location   string
	itemID     string
	quantity   decimal.Decimal
	expiresAt  *time.Time
	originRef  string
	originNote string
	// mergeOrigin incrementa un lote abierto con el mismo originRef en lugar de crear uno nuevo.
	mergeOrigin bool
}

// applyCredit crea (o incrementa) un lote en destino, incrementa el consolidado y escribe un
// único registro por el total. Devuelve el ID del lote acreditado.
func (s *session) applyCredit(ctx context.Context, in creditInput, spec recordSpec) (string, error) {
	st, err := s.lockStock(ctx, in.location, in.itemID)
	if err != nil {
		return "", err
	}
	var target *entity.Lot
	if in.mergeOrigin && in.originRef != "" {
		target, err = s.repos.Lots.FindOpenByOrigin(ctx, in.location, in.itemID, in.originRef)
		if err != nil {
			return "", err
		}
	}
	if target != nil {
		target.QuantityRemaining = target.QuantityRemaining.Add(in.quantity)
		target.ExpiresAt = entity.EarliestExpiry(target.ExpiresAt, in.expiresAt)
		if err := s.repos.Lots.UpdateQuantity(ctx, target.ID, target.QuantityRemaining); err != nil {
			return "", err
		}
	} else {
		target = &entity.Lot{
			ID:                uuid.New().String(),
			Location:          in.location,
			ItemID:            in.itemID,
			QuantityRemaining: in.quantity,
			EnteredAt:         s.now,
			ExpiresAt:         in.expiresAt,
			OriginNote:        in.originNote,
			OriginRef:         in.originRef,
		}
		if err := s.repos.Lots.Create(ctx, target); err != nil {
			return "", err
		}
	}
	if err := s.appendRecord(ctx, in.location, in.itemID, target.ID, in.quantity, spec); err != nil {
		return "", err
	}
	st.QuantityTotal = st.QuantityTotal.Add(in.quantity)
	st.UpdatedAt = s.now
	if err := s.repos.Stock.Upsert(ctx, st); err != nil {
		return "", err
	}
	s.touch(st)
	return target.ID, nil
}

func (s *session) appendRecord(ctx context.Context, location, itemID, lotID string, delta decimal.Decimal, spec recordSpec) error {
	rec := &entity.MovementRecord{
		ID:                 uuid.New().String(),
		TransactionID:      s.txID,
		Timestamp:          s.now,
		Location:           location,
		CounterLocation:    spec.counterLocation,
		ItemID:             itemID,
		LotID:              lotID,
		QuantityDelta:      delta,
		Kind:               spec.kind,
		ActorID:            s.actorID,
		ReasonText:         spec.reason,
		RelatedProcedureID: spec.procedureID,
	}
	return s.repos.Movements.Append(ctx, rec)
}

func (s *session) touch(st *entity.ConsolidatedStock) {
	key := pairKey{st.Location, st.ItemID}
	for _, k := range s.touched {
		if k == key {
			return
		}
	}
	s.touched = append(s.touched, key)
}

// reevaluateAlerts corre el generador de alertas sobre cada par modificado, leyendo el valor
// recién escrito dentro de la misma transacción.
func (s *session) reevaluateAlerts(ctx context.Context) {
	if s.alerts == nil {
		return
	}
	for _, k := range s.touched {
		if s.skipAlerts[k.location] {
			continue
		}
		if loc, err := entity.ParseLocation(k.location); err == nil && loc.IsSink() {
			continue
		}
		if a := s.alerts.Reevaluate(ctx, s.repos.Alerts, s.stock[k], s.now); a != nil {
			s.opened = append(s.opened, *a)
		}
	}
}
