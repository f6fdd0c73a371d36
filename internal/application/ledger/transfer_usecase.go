package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
)

// Modos de traslado masivo.
const (
	TransferModeAtomic     = "atomic"      // todo o nada; reporta cada faltante
	TransferModeBestEffort = "best_effort" // recorta cada línea a lo disponible
)

// ItemQuantity línea (insumo, cantidad) de una operación masiva.
type ItemQuantity struct {
	ItemID   string
	Quantity decimal.Decimal
}

// TransferInputDTO entrada de un traslado de uno o varios insumos entre dos ubicaciones.
type TransferInputDTO struct {
	From    string
	To      string
	Items   []ItemQuantity
	ActorID string
	Reason  string
	// Mode atomic (por defecto) o best_effort.
	Mode string
	// BatchRef contexto de lote: si en destino hay un lote abierto con la misma referencia se incrementa.
	BatchRef string
}

// TransferLine resultado por insumo.
type TransferLine struct {
	ItemID           string
	Requested        decimal.Decimal
	Moved            decimal.Decimal
	Skipped          bool
	SourceDebits     []inventory.LotDebit
	DestinationLotID string
}

// TransferResult resultado del traslado.
type TransferResult struct {
	TransactionID string
	From          string
	To            string
	Mode          string
	Lines         []TransferLine
}

// TransferUseCase motor de traslados entre ubicaciones.
type TransferUseCase struct {
	deps      Deps
	generator *ThresholdAlertGenerator
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(deps Deps) *TransferUseCase {
	return &TransferUseCase{deps: deps, generator: NewThresholdAlertGenerator(deps.Logger)}
}

// Transfer traslada un único insumo. Equivale a TransferStock con una línea en modo atómico.
func (uc *TransferUseCase) Transfer(ctx context.Context, from, to, itemID string, qty decimal.Decimal, actorID, reason string) (*TransferResult, error) {
	return uc.TransferStock(ctx, TransferInputDTO{
		From:    from,
		To:      to,
		Items:   []ItemQuantity{{ItemID: itemID, Quantity: qty}},
		ActorID: actorID,
		Reason:  reason,
	})
}

// TransferStock traslada N insumos en una sola transacción. En modo atómico, si cualquier línea
// no tiene stock suficiente no se aplica ninguna y el error lista cada faltante.
func (uc *TransferUseCase) TransferStock(ctx context.Context, in TransferInputDTO) (*TransferResult, error) {
	res, err := uc.transferStock(ctx, in)
	uc.deps.observe("transfer", err)
	return res, err
}

func (uc *TransferUseCase) transferStock(ctx context.Context, in TransferInputDTO) (*TransferResult, error) {
	if in.Mode == "" {
		in.Mode = TransferModeAtomic
	}
	if in.Mode != TransferModeAtomic && in.Mode != TransferModeBestEffort {
		return nil, fmt.Errorf("%w: modo %q", domain.ErrInvalidInput, in.Mode)
	}
	if in.From == "" || in.To == "" || in.From == in.To {
		return nil, fmt.Errorf("%w: origen y destino deben ser distintos", domain.ErrInvalidInput)
	}
	items, err := normalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	if err := uc.deps.requireItems(ctx, itemIDs(items)...); err != nil {
		return nil, err
	}

	var (
		result *TransferResult
		opened []entity.Alert
	)
	err = uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		s := newSession(repos, uc.generator, uc.deps.now(), in.ActorID)
		if _, err := s.requireWarehouse(ctx, in.From, false); err != nil {
			return err
		}
		if _, err := s.requireWarehouse(ctx, in.To, false); err != nil {
			return err
		}
		pairs := make([]pairKey, 0, 2*len(items))
		for _, it := range items {
			pairs = append(pairs, pairKey{in.From, it.ItemID}, pairKey{in.To, it.ItemID})
		}
		if err := s.lockPairs(ctx, pairs); err != nil {
			return err
		}

		// planificar todo antes de mutar nada
		type planned struct {
			line TransferLine
			plan *inventory.AllocationPlan
			lots map[string]*entity.Lot
		}
		plans := make([]planned, 0, len(items))
		var failures []error
		for _, it := range items {
			line := TransferLine{ItemID: it.ItemID, Requested: it.Quantity}
			qty := it.Quantity
			if in.Mode == TransferModeBestEffort {
				avail, err := s.available(ctx, in.From, it.ItemID)
				if err != nil {
					return err
				}
				qty = decimal.Min(qty, avail)
				if !qty.IsPositive() {
					line.Skipped = true
					line.Moved = decimal.Zero
					plans = append(plans, planned{line: line})
					continue
				}
			}
			p, lots, err := s.plan(ctx, in.From, it.ItemID, qty)
			if err != nil {
				var ise *domain.InsufficientStockError
				if errors.As(err, &ise) {
					failures = append(failures, ise)
					continue
				}
				return err
			}
			line.Moved = p.Total
			line.SourceDebits = p.Debits
			plans = append(plans, planned{line: line, plan: p, lots: lots})
		}
		if len(failures) > 0 {
			return batchOrSingle(failures)
		}

		result = &TransferResult{TransactionID: s.txID, From: in.From, To: in.To, Mode: in.Mode}
		for _, pl := range plans {
			if pl.plan != nil {
				expiry, err := s.applyDebit(ctx, pl.plan, pl.lots, recordSpec{
					kind:            entity.MovementKindTransferOut,
					counterLocation: in.To,
					reason:          in.Reason,
				})
				if err != nil {
					return err
				}
				lotID, err := s.applyCredit(ctx, creditInput{
					location:    in.To,
					itemID:      pl.plan.ItemID,
					quantity:    pl.plan.Total,
					expiresAt:   expiry,
					originRef:   in.BatchRef,
					originNote:  "traslado desde " + in.From,
					mergeOrigin: in.BatchRef != "",
				}, recordSpec{
					kind:            entity.MovementKindTransferIn,
					counterLocation: in.From,
					reason:          in.Reason,
				})
				if err != nil {
					return err
				}
				pl.line.DestinationLotID = lotID
			}
			result.Lines = append(result.Lines, pl.line)
		}
		s.reevaluateAlerts(ctx)
		opened = s.opened
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.deps.notifyOpened(ctx, opened)
	uc.deps.log().Info().
		Str("tx_id", result.TransactionID).
		Str("from", in.From).
		Str("to", in.To).
		Int("items", len(result.Lines)).
		Msg("traslado registrado")
	return result, nil
}

// normalizeItems valida cantidades y fusiona insumos repetidos conservando el orden de aparición.
func normalizeItems(items []ItemQuantity) ([]ItemQuantity, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: sin insumos", domain.ErrInvalidInput)
	}
	idx := make(map[string]int, len(items))
	out := make([]ItemQuantity, 0, len(items))
	for _, it := range items {
		if it.ItemID == "" || !it.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: cantidad de %q debe ser mayor que cero", domain.ErrInvalidInput, it.ItemID)
		}
		if !inventory.RepresentableQuantity(it.Quantity) {
			return nil, fmt.Errorf("%w: cantidad de %q admite hasta %d decimales", domain.ErrInvalidInput, it.ItemID, inventory.QuantityScale)
		}
		if i, ok := idx[it.ItemID]; ok {
			out[i].Quantity = out[i].Quantity.Add(it.Quantity)
			if !inventory.RepresentableQuantity(out[i].Quantity) {
				return nil, fmt.Errorf("%w: cantidad total de %q fuera de rango", domain.ErrInvalidInput, it.ItemID)
			}
			continue
		}
		idx[it.ItemID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

func itemIDs(items []ItemQuantity) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	return ids
}

func batchOrSingle(failures []error) error {
	if len(failures) == 1 {
		return failures[0]
	}
	return &domain.BatchError{Failures: failures}
}
