package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

var _ ledger.Notifier = (*Notifier)(nil)

// Enqueuer lo que el Notifier necesita de *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotifierMetrics contadores opcionales.
type NotifierMetrics interface {
	AlertOpened()
	IntegrityViolation()
}

// Notifier implementa ledger.Notifier encolando tareas. Nunca devuelve error: un aviso que no se
// pudo encolar se registra en el log y la operación de stock ya confirmada sigue su curso.
// Con client nil solo deja constancia en el log (modo sin Redis).
type Notifier struct {
	client  Enqueuer
	log     *logger.Logger
	metrics NotifierMetrics
}

func NewNotifier(client Enqueuer, log *logger.Logger, metrics NotifierMetrics) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{client: client, log: log, metrics: metrics}
}

// AlertOpened encola el aviso de una alerta nueva.
func (n *Notifier) AlertOpened(ctx context.Context, a entity.Alert) {
	if n.metrics != nil {
		n.metrics.AlertOpened()
	}
	ev := n.log.Info().
		Str("alert_id", a.ID).
		Str("location", a.Location).
		Str("item_id", a.ItemID).
		Str("priority", a.Priority)
	if n.client == nil {
		ev.Msg("alerta de stock mínimo (sin cola configurada)")
		return
	}
	task, err := NewAlertOpenedTask(a)
	if err != nil {
		n.log.Error().Err(err).Str("alert_id", a.ID).Msg("no se pudo construir la tarea de alerta")
		return
	}
	n.enqueue(ctx, task, a.ID)
}

// IntegrityViolation encola el aviso de un par congelado.
func (n *Notifier) IntegrityViolation(ctx context.Context, v domain.IntegrityViolationError) {
	if n.metrics != nil {
		n.metrics.IntegrityViolation()
	}
	if n.client == nil {
		n.log.Error().
			Str("location", v.Location).
			Str("item_id", v.ItemID).
			Msg("violación de integridad (sin cola configurada)")
		return
	}
	task, err := NewIntegrityViolationTask(v)
	if err != nil {
		n.log.Error().Err(err).Msg("no se pudo construir la tarea de violación")
		return
	}
	n.enqueue(ctx, task, v.Location+"/"+v.ItemID)
}

func (n *Notifier) enqueue(ctx context.Context, task *asynq.Task, ref string) {
	// el contexto de la petición puede estar por cancelarse; el aviso no debe perderse por eso
	ctx = context.WithoutCancel(ctx)
	if _, err := n.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			n.log.Debug().Str("task", task.Type()).Str("ref", ref).Msg("aviso ya encolado")
			return
		}
		n.log.Error().Err(err).Str("task", task.Type()).Str("ref", ref).Msg("no se pudo encolar el aviso")
	}
}
