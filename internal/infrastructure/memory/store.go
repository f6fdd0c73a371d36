// Package memory implementa los puertos del libro en memoria con transacciones por copia del
// estado: cada Run trabaja sobre un clon y lo publica solo si fn termina sin error.
// Lo usan los tests de casos de uso y el modo LEDGER_STORE=memory.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
)

type pair struct {
	location string
	itemID   string
}

type state struct {
	warehouses map[string]entity.Warehouse
	lots       map[string]entity.Lot
	stock      map[pair]entity.ConsolidatedStock
	movements  []entity.MovementRecord
	alerts     map[string]entity.Alert
	procedures map[string]entity.Procedure
}

func newState() state {
	return state{
		warehouses: map[string]entity.Warehouse{},
		lots:       map[string]entity.Lot{},
		stock:      map[pair]entity.ConsolidatedStock{},
		alerts:     map[string]entity.Alert{},
		procedures: map[string]entity.Procedure{},
	}
}

func (s state) clone() state {
	c := state{
		warehouses: make(map[string]entity.Warehouse, len(s.warehouses)),
		lots:       make(map[string]entity.Lot, len(s.lots)),
		stock:      make(map[pair]entity.ConsolidatedStock, len(s.stock)),
		// el libro solo crece: compartir el arreglo base es seguro si se limita la capacidad
		movements:  s.movements[:len(s.movements):len(s.movements)],
		alerts:     make(map[string]entity.Alert, len(s.alerts)),
		procedures: make(map[string]entity.Procedure, len(s.procedures)),
	}
	for k, v := range s.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range s.lots {
		c.lots[k] = *v.Clone()
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.alerts {
		c.alerts[k] = v
	}
	for k, v := range s.procedures {
		c.procedures[k] = v
	}
	return c
}

// Store almacén transaccional en memoria. Serializa todas las transacciones con un único mutex,
// lo que equivale a aislamiento serializable.
type Store struct {
	mu      sync.Mutex
	state   state
	catalog map[string]bool
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{state: newState(), catalog: map[string]bool{}}
}

// Run implementa ledger.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos ledger.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{st: s.state.clone()}
	if err := fn(ctx, tx.repositories()); err != nil {
		return err
	}
	// una cancelación durante fn descarta todo lo aplicado
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}

// AddCatalogItems registra insumos válidos del catálogo.
func (s *Store) AddCatalogItems(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.catalog[id] = true
	}
}

// Exists implementa ledger.Catalog.
func (s *Store) Exists(_ context.Context, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog[itemID], nil
}

type txState struct {
	st state
}

func (tx *txState) repositories() ledger.Repositories {
	return ledger.Repositories{
		Lots:       lotRepo{tx},
		Stock:      stockRepo{tx},
		Movements:  movementRepo{tx},
		Alerts:     alertRepo{tx},
		Warehouses: warehouseRepo{tx},
		Procedures: procedureRepo{tx},
	}
}

var _ ledger.TxRunner = (*Store)(nil)
var _ ledger.Catalog = (*Store)(nil)
