package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow fila que falla o no existe al escanear.
type fakeRow struct{ err error }

func (r fakeRow) Scan(...any) error { return r.err }

// fakeSavepoint savepoint anotado: registra commit o rollback.
type fakeSavepoint struct {
	pgx.Tx
	row        fakeRow
	committed  bool
	rolledBack bool
}

func (s *fakeSavepoint) QueryRow(context.Context, string, ...any) pgx.Row { return s.row }

func (s *fakeSavepoint) Commit(context.Context) error {
	s.committed = true
	return nil
}

func (s *fakeSavepoint) Rollback(context.Context) error {
	if !s.committed {
		s.rolledBack = true
	}
	return nil
}

// fakeTx transacción externa: toda lectura directa queda registrada.
type fakeTx struct {
	sp          *fakeSavepoint
	directReads int
}

func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	t.directReads++
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	t.directReads++
	return nil, errors.New("lectura fuera de savepoint")
}

func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	t.directReads++
	return fakeRow{err: errors.New("lectura fuera de savepoint")}
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t.sp, nil }

// ─── AlertRepo.FindOpen ─────────────────────────────────────────────────────

func TestFindOpen_ErrorDeLecturaSeDeshaceEnSavepoint(t *testing.T) {
	tx := &fakeTx{sp: &fakeSavepoint{row: fakeRow{err: &pgconn.PgError{Code: "57014"}}}}
	repo := NewAlertRepository(tx)

	a, err := repo.FindOpen(context.Background(), "general:h-1", "gasa")

	require.Error(t, err)
	assert.Nil(t, a)
	assert.True(t, tx.sp.rolledBack, "el fallo solo deshace el savepoint")
	assert.False(t, tx.sp.committed)
	assert.Zero(t, tx.directReads)
}

func TestFindOpen_SinAlertaAbiertaDevuelveNil(t *testing.T) {
	tx := &fakeTx{sp: &fakeSavepoint{row: fakeRow{err: pgx.ErrNoRows}}}
	repo := NewAlertRepository(tx)

	a, err := repo.FindOpen(context.Background(), "general:h-1", "gasa")

	require.NoError(t, err)
	assert.Nil(t, a)
	assert.True(t, tx.sp.committed)
	assert.Zero(t, tx.directReads)
}
