package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

// CheckIntegrity compara el consolidado contra la suma de lotes y la suma firmada del libro.
// Devuelve *domain.IntegrityViolationError si alguno no cuadra o si hay cantidades negativas.
func CheckIntegrity(stock *entity.ConsolidatedStock, lotSum, ledgerSum decimal.Decimal) error {
	ok := stock.QuantityTotal.Equal(lotSum) &&
		stock.QuantityTotal.Equal(ledgerSum) &&
		!stock.QuantityTotal.IsNegative()
	if ok {
		return nil
	}
	return &domain.IntegrityViolationError{
		Location:  stock.Location,
		ItemID:    stock.ItemID,
		Stock:     stock.QuantityTotal,
		LotSum:    lotSum,
		LedgerSum: ledgerSum,
	}
}
