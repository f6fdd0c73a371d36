package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
)

// ── lotes ────────────────────────────────────────────────────────────────────

type lotRepo struct{ tx *txState }

func (r lotRepo) ListAvailable(_ context.Context, location, itemID string) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, l := range r.tx.st.lots {
		if l.Location == location && l.ItemID == itemID && l.HasStock() {
			out = append(out, l.Clone())
		}
	}
	inventory.SortFIFO(out)
	return out, nil
}

func (r lotRepo) ListByLocation(_ context.Context, location string) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, l := range r.tx.st.lots {
		if l.Location == location && l.HasStock() {
			out = append(out, l.Clone())
		}
	}
	inventory.SortFIFO(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (r lotRepo) FindOpenByOrigin(_ context.Context, location, itemID, originRef string) (*entity.Lot, error) {
	var found *entity.Lot
	for _, l := range r.tx.st.lots {
		if l.Location != location || l.ItemID != itemID || l.OriginRef != originRef || !l.HasStock() {
			continue
		}
		if found == nil || l.EnteredAt.Before(found.EnteredAt) {
			found = l.Clone()
		}
	}
	return found, nil
}

func (r lotRepo) Create(_ context.Context, lot *entity.Lot) error {
	if _, ok := r.tx.st.lots[lot.ID]; ok {
		return domain.ErrDuplicate
	}
	if lot.QuantityRemaining.IsNegative() {
		return domain.ErrInvalidInput
	}
	r.tx.st.lots[lot.ID] = *lot.Clone()
	return nil
}

func (r lotRepo) UpdateQuantity(_ context.Context, lotID string, quantity decimal.Decimal) error {
	l, ok := r.tx.st.lots[lotID]
	if !ok {
		return domain.ErrNotFound
	}
	if quantity.IsNegative() {
		return domain.ErrInvalidInput
	}
	l.QuantityRemaining = quantity
	r.tx.st.lots[lotID] = l
	return nil
}

func (r lotRepo) SumRemaining(_ context.Context, location, itemID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, l := range r.tx.st.lots {
		if l.Location == location && l.ItemID == itemID {
			sum = sum.Add(l.QuantityRemaining)
		}
	}
	return sum, nil
}

// ── stock consolidado ────────────────────────────────────────────────────────

type stockRepo struct{ tx *txState }

func (r stockRepo) GetForUpdate(_ context.Context, location, itemID string) (*entity.ConsolidatedStock, error) {
	key := pair{location, itemID}
	st, ok := r.tx.st.stock[key]
	if !ok {
		st = entity.ConsolidatedStock{Location: location, ItemID: itemID, QuantityTotal: decimal.Zero, MinimumThreshold: decimal.Zero}
		r.tx.st.stock[key] = st
	}
	return &st, nil
}

func (r stockRepo) Upsert(_ context.Context, stock *entity.ConsolidatedStock) error {
	if stock.QuantityTotal.IsNegative() {
		return domain.ErrInvalidInput
	}
	r.tx.st.stock[pair{stock.Location, stock.ItemID}] = *stock
	return nil
}

func (r stockRepo) List(_ context.Context, location, itemID string) ([]*entity.ConsolidatedStock, error) {
	var out []*entity.ConsolidatedStock
	for k, v := range r.tx.st.stock {
		if (location == "" || k.location == location) && (itemID == "" || k.itemID == itemID) {
			c := v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

// ── libro de movimientos ─────────────────────────────────────────────────────

type movementRepo struct{ tx *txState }

func (r movementRepo) Append(_ context.Context, record *entity.MovementRecord) error {
	record.Seq = int64(len(r.tx.st.movements) + 1)
	r.tx.st.movements = append(r.tx.st.movements, *record)
	return nil
}

func (r movementRepo) History(_ context.Context, f entity.MovementFilter) ([]*entity.MovementRecord, error) {
	var out []*entity.MovementRecord
	skipped := 0
	for _, m := range r.tx.st.movements {
		if f.Location != "" && m.Location != f.Location {
			continue
		}
		if f.ItemID != "" && m.ItemID != f.ItemID {
			continue
		}
		if f.ProcedureID != "" && m.RelatedProcedureID != f.ProcedureID {
			continue
		}
		if f.Since != nil && m.Timestamp.Before(*f.Since) {
			continue
		}
		if f.Until != nil && m.Timestamp.After(*f.Until) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		c := m
		out = append(out, &c)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r movementRepo) SumDelta(_ context.Context, location, itemID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, m := range r.tx.st.movements {
		if m.Location == location && m.ItemID == itemID {
			sum = sum.Add(m.QuantityDelta)
		}
	}
	return sum, nil
}

// ── alertas ──────────────────────────────────────────────────────────────────

type alertRepo struct{ tx *txState }

func (r alertRepo) FindOpen(_ context.Context, location, itemID string) (*entity.Alert, error) {
	for _, a := range r.tx.st.alerts {
		if a.Location == location && a.ItemID == itemID && a.IsOpen() {
			c := a
			return &c, nil
		}
	}
	return nil, nil
}

func (r alertRepo) GetByID(_ context.Context, id string) (*entity.Alert, error) {
	a, ok := r.tx.st.alerts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r alertRepo) Create(ctx context.Context, alert *entity.Alert) error {
	if open, _ := r.FindOpen(ctx, alert.Location, alert.ItemID); open != nil {
		return domain.ErrDuplicate
	}
	r.tx.st.alerts[alert.ID] = *alert
	return nil
}

func (r alertRepo) UpdateState(_ context.Context, id, state string, at time.Time) error {
	a, ok := r.tx.st.alerts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.State = state
	a.UpdatedAt = at
	if state == entity.AlertStateResolved {
		a.ResolvedAt = &at
	}
	r.tx.st.alerts[id] = a
	return nil
}

func (r alertRepo) ListOpen(_ context.Context, location string) ([]*entity.Alert, error) {
	var out []*entity.Alert
	for _, a := range r.tx.st.alerts {
		if a.IsOpen() && (location == "" || a.Location == location) {
			c := a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ── ubicaciones ──────────────────────────────────────────────────────────────

type warehouseRepo struct{ tx *txState }

func (r warehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	if _, ok := r.tx.st.warehouses[w.Key()]; ok {
		return domain.ErrDuplicate
	}
	r.tx.st.warehouses[w.Key()] = *w
	return nil
}

func (r warehouseRepo) Get(_ context.Context, location string) (*entity.Warehouse, error) {
	w, ok := r.tx.st.warehouses[location]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r warehouseRepo) GetForUpdate(ctx context.Context, location string) (*entity.Warehouse, error) {
	return r.Get(ctx, location)
}

func (r warehouseRepo) Deactivate(_ context.Context, location string, at time.Time) error {
	w, ok := r.tx.st.warehouses[location]
	if !ok {
		return domain.ErrNotFound
	}
	w.Active = false
	w.UpdatedAt = at
	w.DeactivatedAt = &at
	r.tx.st.warehouses[location] = w
	return nil
}

// ── procedimientos ───────────────────────────────────────────────────────────

type procedureRepo struct{ tx *txState }

func (r procedureRepo) Create(_ context.Context, p *entity.Procedure) error {
	if _, ok := r.tx.st.procedures[p.ID]; ok {
		return domain.ErrDuplicate
	}
	r.tx.st.procedures[p.ID] = *p
	return nil
}

func (r procedureRepo) GetForUpdate(_ context.Context, id string) (*entity.Procedure, error) {
	p, ok := r.tx.st.procedures[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r procedureRepo) MarkRefunded(_ context.Context, id, actorID string, at time.Time) error {
	p, ok := r.tx.st.procedures[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = entity.ProcedureStatusRefunded
	p.RefundedAt = &at
	p.RefundedBy = actorID
	r.tx.st.procedures[id] = p
	return nil
}
