package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/domain/repository"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// Repositories repositorios atados a una misma transacción.
type Repositories struct {
	Lots       repository.LotRepository
	Stock      repository.StockRepository
	Movements  repository.MovementRepository
	Alerts     repository.AlertRepository
	Warehouses repository.WarehouseRepository
	Procedures repository.ProcedureRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor del libro: si fn devuelve error (o ctx se cancela) no se
// observa ningún débito ni crédito parcial. Las implementaciones pueden reintentar fn ante
// conflictos de serialización, por lo que fn no debe tener efectos fuera de los repositorios.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Catalog colaborador externo del catálogo de insumos.
type Catalog interface {
	Exists(ctx context.Context, itemID string) (bool, error)
}

// Notifier despacho de notificaciones (fire-and-forget): no devuelve error al caller.
type Notifier interface {
	AlertOpened(ctx context.Context, alert entity.Alert)
	IntegrityViolation(ctx context.Context, violation domain.IntegrityViolationError)
}

// Metrics observa el resultado de cada operación del libro.
type Metrics interface {
	ObserveOperation(operation string, err error)
}

// Deps dependencias compartidas por los casos de uso del libro.
type Deps struct {
	TxRunner TxRunner
	Catalog  Catalog
	Notifier Notifier
	Metrics  Metrics
	Logger   *logger.Logger
	// Now reloj inyectable; por defecto time.Now().UTC().
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d Deps) log() *logger.Logger {
	if d.Logger == nil {
		return logger.Nop()
	}
	return d.Logger
}

func (d Deps) observe(operation string, err error) {
	if d.Metrics != nil {
		d.Metrics.ObserveOperation(operation, err)
	}
}

// requireItems valida contra el catálogo que cada insumo exista.
func (d Deps) requireItems(ctx context.Context, itemIDs ...string) error {
	if d.Catalog == nil {
		return nil
	}
	for _, id := range itemIDs {
		ok, err := d.Catalog.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.UnknownItemError{ItemID: id}
		}
	}
	return nil
}

func (d Deps) notifyOpened(ctx context.Context, alerts []entity.Alert) {
	if d.Notifier == nil {
		return
	}
	for _, a := range alerts {
		d.Notifier.AlertOpened(ctx, a)
	}
}
