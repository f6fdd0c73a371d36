package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/insumos-ledger/internal/domain/inventory"
)

func TestRepresentableQuantity(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"0.0001", true},
		{"-2.5", true},
		{"1.00000", true}, // ceros a la derecha no cambian el valor
		{"0.00005", false},
		{"-0.00001", false},
		{"99999999999999.9999", true},
		{"100000000000000", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, inventory.RepresentableQuantity(decimal.RequireFromString(c.in)), c.in)
	}
}
