package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// JobMetrics cuenta ejecuciones; devuelve err sin tocarlo.
type JobMetrics interface {
	JobRun(job string, err error) error
}

type nopJobMetrics struct{}

func (nopJobMetrics) JobRun(_ string, err error) error { return err }

// AlertHandler procesa avisos de alertas y violaciones. La entrega a compras/operación
// es un log estructurado que consume el agregador de logs.
type AlertHandler struct {
	log     *logger.Logger
	metrics JobMetrics
}

func NewAlertHandler(log *logger.Logger, metrics JobMetrics) *AlertHandler {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopJobMetrics{}
	}
	return &AlertHandler{log: log.Component("alerts"), metrics: metrics}
}

// HandleAlertOpened procesa TaskAlertOpened.
func (h *AlertHandler) HandleAlertOpened(_ context.Context, t *asynq.Task) error {
	var p AlertOpenedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.log.Error().Err(err).Msg("payload de alerta inválido")
		return h.metrics.JobRun(TaskAlertOpened, fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}
	h.log.Warn().
		Str("alert_id", p.AlertID).
		Str("location", p.Location).
		Str("item_id", p.ItemID).
		Str("priority", p.Priority).
		Str("quantity", p.QuantityAtTrigger.String()).
		Str("minimum", p.MinimumThreshold.String()).
		Msg("stock por debajo del mínimo")
	return h.metrics.JobRun(TaskAlertOpened, nil)
}

// HandleIntegrityViolation procesa TaskIntegrityViolation.
func (h *AlertHandler) HandleIntegrityViolation(_ context.Context, t *asynq.Task) error {
	var p IntegrityViolationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.log.Error().Err(err).Msg("payload de violación inválido")
		return h.metrics.JobRun(TaskIntegrityViolation, fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}
	h.log.Error().
		Str("location", p.Location).
		Str("item_id", p.ItemID).
		Str("stock", p.Stock.String()).
		Str("lot_sum", p.LotSum.String()).
		Str("ledger_sum", p.LedgerSum.String()).
		Msg("par congelado por violación de integridad")
	return h.metrics.JobRun(TaskIntegrityViolation, nil)
}

// Reconciler lo que el job necesita del caso de uso de conciliación.
type Reconciler interface {
	Reconcile(ctx context.Context, location, itemID string) (*ledger.ReconcileReport, error)
}

const reconcileLockKey = "ledger:reconcile:lock"

// ReconcileJob ejecuta la conciliación bajo un lock distribuido: con varios workers solo uno
// recorre el libro a la vez.
type ReconcileJob struct {
	reconciler Reconciler
	locker     *redislock.Client
	lockTTL    time.Duration
	log        *logger.Logger
	metrics    JobMetrics
}

// NewReconcileJob lockTTL debe cubrir una corrida completa.
func NewReconcileJob(reconciler Reconciler, locker *redislock.Client, lockTTL time.Duration, log *logger.Logger, metrics JobMetrics) *ReconcileJob {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopJobMetrics{}
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &ReconcileJob{reconciler: reconciler, locker: locker, lockTTL: lockTTL, log: log.Component("reconcile"), metrics: metrics}
}

// Handle procesa TaskReconcile. Las violaciones encontradas ya quedaron congeladas y notificadas
// por el caso de uso, así que no son un fallo de la tarea.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	var p ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return j.metrics.JobRun(TaskReconcile, fmt.Errorf("%v: %w", err, asynq.SkipRetry))
		}
	}
	report, err := j.Run(ctx, p)
	if errors.Is(err, redislock.ErrNotObtained) {
		j.log.Info().Msg("otra instancia está conciliando; se omite la corrida")
		return nil
	}
	if err != nil {
		return j.metrics.JobRun(TaskReconcile, err)
	}
	j.log.Info().
		Int("checked", report.Checked).
		Int("frozen", report.Frozen).
		Int("violations", len(report.Violations)).
		Msg("conciliación terminada")
	return j.metrics.JobRun(TaskReconcile, nil)
}

// Run toma el lock y concilia. Devuelve redislock.ErrNotObtained si otra corrida lo tiene.
func (j *ReconcileJob) Run(ctx context.Context, p ReconcilePayload) (*ledger.ReconcileReport, error) {
	if j.locker != nil {
		lock, err := j.locker.Obtain(ctx, reconcileLockKey, j.lockTTL, nil)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				j.log.Warn().Err(err).Msg("no se pudo liberar el lock de conciliación")
			}
		}()
	}

	report, err := j.reconciler.Reconcile(ctx, p.Location, p.ItemID)
	if err != nil && !errors.Is(err, domain.ErrPairFrozen) {
		return report, err
	}
	return report, nil
}
