package postgres

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// Ensure TxRunner implements ledger.TxRunner.
var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL SERIALIZABLE. Ante un
// conflicto de serialización o un deadlock reintenta fn completa hasta maxAttempts veces y
// luego devuelve *domain.ConcurrentModificationError.
type TxRunner struct {
	pool        *pgxpool.Pool
	maxAttempts int
	log         *logger.Logger
	onRetry     func()
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, maxAttempts int, log *logger.Logger) *TxRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TxRunner{pool: pool, maxAttempts: maxAttempts, log: log}
}

// OnRetry registra un observador de reintentos (métricas).
func (r *TxRunner) OnRetry(fn func()) { r.onRetry = fn }

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos ledger.Repositories) error) error {
	for attempt := 1; ; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		if attempt >= r.maxAttempts {
			return &domain.ConcurrentModificationError{Attempts: attempt, Err: err}
		}
		if r.onRetry != nil {
			r.onRetry()
		}
		r.log.Debug().Err(err).Int("attempt", attempt).Msg("conflicto de serialización, reintentando")

		// espera creciente con jitter para no chocar de nuevo con la misma transacción
		backoff := time.Duration(attempt*10+rand.IntN(10)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, repos ledger.Repositories) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, Repositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repositories repositorios del libro atados a q (pool o tx).
func Repositories(q Querier) ledger.Repositories {
	return ledger.Repositories{
		Lots:       NewLotRepository(q),
		Stock:      NewStockRepository(q),
		Movements:  NewMovementRepository(q),
		Alerts:     NewAlertRepository(q),
		Warehouses: NewWarehouseRepository(q),
		Procedures: NewProcedureRepository(q),
	}
}
