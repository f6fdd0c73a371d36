package inventory

import "github.com/shopspring/decimal"

// QuantityScale decimales que conservan las columnas NUMERIC(18,4) de lotes, stock y libro.
const QuantityScale = 4

var maxQuantity = decimal.New(1, 18-QuantityScale)

// RepresentableQuantity indica si q cabe sin redondeo en NUMERIC(18,4). Una cantidad con más
// decimales se redondearía distinto en cada columna y el libro dejaría de cuadrar.
func RepresentableQuantity(q decimal.Decimal) bool {
	if !q.Equal(q.Truncate(QuantityScale)) {
		return false
	}
	return q.Abs().LessThan(maxQuantity)
}
