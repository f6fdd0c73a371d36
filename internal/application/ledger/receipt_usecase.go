package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
)

// ReceiveInputDTO entrada de stock al sistema (recepción de compra).
type ReceiveInputDTO struct {
	Location  string
	ItemID    string
	Quantity  decimal.Decimal
	ExpiresAt *time.Time
	ActorID   string
	Note      string
	// Reference referencia externa (orden de compra, remisión); queda como origen del lote.
	Reference string
}

// AdjustInputDTO corrección firmada con motivo obligatorio.
type AdjustInputDTO struct {
	Location  string
	ItemID    string
	Delta     decimal.Decimal
	ExpiresAt *time.Time
	ActorID   string
	Reason    string
}

// StockMovementResult resultado de una recepción o ajuste.
type StockMovementResult struct {
	TransactionID string
	Location      string
	ItemID        string
	Delta         decimal.Decimal
	LotIDs        []string
	QuantityTotal decimal.Decimal
}

// ReceiptUseCase entradas y ajustes de stock.
type ReceiptUseCase struct {
	deps      Deps
	generator *ThresholdAlertGenerator
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(deps Deps) *ReceiptUseCase {
	return &ReceiptUseCase{deps: deps, generator: NewThresholdAlertGenerator(deps.Logger)}
}

// ReceiveStock crea un lote nuevo en la ubicación y un registro receipt.
func (uc *ReceiptUseCase) ReceiveStock(ctx context.Context, in ReceiveInputDTO) (*StockMovementResult, error) {
	res, err := uc.receive(ctx, in)
	uc.deps.observe("receive", err)
	return res, err
}

func (uc *ReceiptUseCase) receive(ctx context.Context, in ReceiveInputDTO) (*StockMovementResult, error) {
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad recibida debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if !inventory.RepresentableQuantity(in.Quantity) {
		return nil, fmt.Errorf("%w: la cantidad admite hasta %d decimales", domain.ErrInvalidInput, inventory.QuantityScale)
	}
	if err := uc.deps.requireItems(ctx, in.ItemID); err != nil {
		return nil, err
	}
	note := in.Note
	if note == "" {
		note = "recepción"
	}
	return uc.run(ctx, in.Location, in.ItemID, in.ActorID, func(ctx context.Context, s *session, res *StockMovementResult) error {
		lotID, err := s.applyCredit(ctx, creditInput{
			location:   in.Location,
			itemID:     in.ItemID,
			quantity:   in.Quantity,
			expiresAt:  in.ExpiresAt,
			originRef:  in.Reference,
			originNote: note,
		}, recordSpec{
			kind:   entity.MovementKindReceipt,
			reason: note,
		})
		if err != nil {
			return err
		}
		res.Delta = in.Quantity
		res.LotIDs = []string{lotID}
		return nil
	})
}

// AdjustStock corrige el stock con un ajuste firmado: negativo descuenta lotes en orden FIFO,
// positivo crea un lote nuevo. El libro nunca se edita; la corrección es un registro más.
func (uc *ReceiptUseCase) AdjustStock(ctx context.Context, in AdjustInputDTO) (*StockMovementResult, error) {
	res, err := uc.adjust(ctx, in)
	uc.deps.observe("adjust", err)
	return res, err
}

func (uc *ReceiptUseCase) adjust(ctx context.Context, in AdjustInputDTO) (*StockMovementResult, error) {
	if in.Delta.IsZero() {
		return nil, fmt.Errorf("%w: el ajuste no puede ser cero", domain.ErrInvalidInput)
	}
	if !inventory.RepresentableQuantity(in.Delta) {
		return nil, fmt.Errorf("%w: el ajuste admite hasta %d decimales", domain.ErrInvalidInput, inventory.QuantityScale)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("%w: el ajuste requiere motivo", domain.ErrInvalidInput)
	}
	if err := uc.deps.requireItems(ctx, in.ItemID); err != nil {
		return nil, err
	}
	return uc.run(ctx, in.Location, in.ItemID, in.ActorID, func(ctx context.Context, s *session, res *StockMovementResult) error {
		spec := recordSpec{kind: entity.MovementKindAdjustment, reason: in.Reason}
		res.Delta = in.Delta
		if in.Delta.IsPositive() {
			lotID, err := s.applyCredit(ctx, creditInput{
				location:   in.Location,
				itemID:     in.ItemID,
				quantity:   in.Delta,
				expiresAt:  in.ExpiresAt,
				originNote: "ajuste: " + in.Reason,
			}, spec)
			if err != nil {
				return err
			}
			res.LotIDs = []string{lotID}
			return nil
		}
		p, lots, err := s.plan(ctx, in.Location, in.ItemID, in.Delta.Neg())
		if err != nil {
			return err
		}
		if _, err := s.applyDebit(ctx, p, lots, spec); err != nil {
			return err
		}
		for _, d := range p.Debits {
			res.LotIDs = append(res.LotIDs, d.LotID)
		}
		return nil
	})
}

// run ejecuta una mutación de un solo par con la validación, el bloqueo y la reevaluación comunes.
func (uc *ReceiptUseCase) run(ctx context.Context, location, itemID, actorID string, fn func(ctx context.Context, s *session, res *StockMovementResult) error) (*StockMovementResult, error) {
	var (
		result *StockMovementResult
		opened []entity.Alert
	)
	err := uc.deps.TxRunner.Run(ctx, func(ctx context.Context, repos Repositories) error {
		s := newSession(repos, uc.generator, uc.deps.now(), actorID)
		if _, err := s.requireWarehouse(ctx, location, false); err != nil {
			return err
		}
		st, err := s.lockStock(ctx, location, itemID)
		if err != nil {
			return err
		}
		res := &StockMovementResult{TransactionID: s.txID, Location: location, ItemID: itemID}
		if err := fn(ctx, s, res); err != nil {
			return err
		}
		res.QuantityTotal = st.QuantityTotal
		s.reevaluateAlerts(ctx)
		result = res
		opened = s.opened
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.deps.notifyOpened(ctx, opened)
	uc.deps.log().Info().
		Str("tx_id", result.TransactionID).
		Str("location", location).
		Str("item_id", itemID).
		Str("delta", result.Delta.String()).
		Msg("movimiento de stock registrado")
	return result, nil
}
