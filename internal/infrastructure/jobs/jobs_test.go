package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/jobs"
)

// ─── Notifier ───────────────────────────────────────────────────────────────

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type counters struct{ alerts, violations int }

func (c *counters) AlertOpened()        { c.alerts++ }
func (c *counters) IntegrityViolation() { c.violations++ }

func sampleAlert() entity.Alert {
	return entity.Alert{
		ID:                "a-1",
		Location:          "provisional:qx-1",
		ItemID:            "gasa",
		QuantityAtTrigger: decimal.NewFromInt(2),
		MinimumThreshold:  decimal.NewFromInt(10),
		Priority:          entity.AlertPriorityCritical,
		State:             entity.AlertStateActive,
		CreatedAt:         time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestNotifier_EncolaAlertaConSuPayload(t *testing.T) {
	q := &fakeEnqueuer{}
	m := &counters{}
	n := jobs.NewNotifier(q, nil, m)

	n.AlertOpened(context.Background(), sampleAlert())

	require.Len(t, q.tasks, 1)
	assert.Equal(t, jobs.TaskAlertOpened, q.tasks[0].Type())
	var p jobs.AlertOpenedPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &p))
	assert.Equal(t, "a-1", p.AlertID)
	assert.Equal(t, "provisional:qx-1", p.Location)
	assert.True(t, p.QuantityAtTrigger.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1, m.alerts)
}

func TestNotifier_ErrorDeColaNoSePropaga(t *testing.T) {
	q := &fakeEnqueuer{err: errors.New("redis caído")}
	n := jobs.NewNotifier(q, nil, nil)

	assert.NotPanics(t, func() {
		n.AlertOpened(context.Background(), sampleAlert())
		n.IntegrityViolation(context.Background(), domain.IntegrityViolationError{Location: "central", ItemID: "gasa"})
	})
}

func TestNotifier_SinColaSoloRegistra(t *testing.T) {
	m := &counters{}
	n := jobs.NewNotifier(nil, nil, m)

	n.AlertOpened(context.Background(), sampleAlert())
	n.IntegrityViolation(context.Background(), domain.IntegrityViolationError{Location: "central", ItemID: "gasa"})

	assert.Equal(t, 1, m.alerts)
	assert.Equal(t, 1, m.violations)
}

func TestNotifier_ViolacionVaALaColaCritica(t *testing.T) {
	q := &fakeEnqueuer{}
	n := jobs.NewNotifier(q, nil, nil)

	n.IntegrityViolation(context.Background(), domain.IntegrityViolationError{
		Location: "general:h-1", ItemID: "sutura",
		Stock: decimal.NewFromInt(5), LotSum: decimal.NewFromInt(4), LedgerSum: decimal.NewFromInt(5),
	})

	require.Len(t, q.tasks, 1)
	assert.Equal(t, jobs.TaskIntegrityViolation, q.tasks[0].Type())
	var p jobs.IntegrityViolationPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &p))
	assert.True(t, p.LotSum.Equal(decimal.NewFromInt(4)))
}

// ─── Handlers ───────────────────────────────────────────────────────────────

type jobCounter struct{ runs map[string][]error }

func (j *jobCounter) JobRun(job string, err error) error {
	if j.runs == nil {
		j.runs = map[string][]error{}
	}
	j.runs[job] = append(j.runs[job], err)
	return err
}

func TestAlertHandler_PayloadInvalidoNoSeReintenta(t *testing.T) {
	h := jobs.NewAlertHandler(nil, nil)
	err := h.HandleAlertOpened(context.Background(), asynq.NewTask(jobs.TaskAlertOpened, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAlertHandler_ProcesaAlerta(t *testing.T) {
	jc := &jobCounter{}
	h := jobs.NewAlertHandler(nil, jc)
	task, err := jobs.NewAlertOpenedTask(sampleAlert())
	require.NoError(t, err)

	require.NoError(t, h.HandleAlertOpened(context.Background(), task))
	assert.Len(t, jc.runs[jobs.TaskAlertOpened], 1)
}

func TestAlertHandler_ProcesaViolacion(t *testing.T) {
	h := jobs.NewAlertHandler(nil, nil)
	task, err := jobs.NewIntegrityViolationTask(domain.IntegrityViolationError{Location: "central", ItemID: "gasa"})
	require.NoError(t, err)
	assert.NoError(t, h.HandleIntegrityViolation(context.Background(), task))
}

// ─── ReconcileJob ───────────────────────────────────────────────────────────

type fakeReconciler struct {
	calls   int
	filter  jobs.ReconcilePayload
	report  *ledger.ReconcileReport
	err     error
	started chan struct{}
	block   chan struct{}
}

func (f *fakeReconciler) Reconcile(_ context.Context, location, itemID string) (*ledger.ReconcileReport, error) {
	f.calls++
	f.filter = jobs.ReconcilePayload{Location: location, ItemID: itemID}
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.report == nil {
		f.report = &ledger.ReconcileReport{}
	}
	return f.report, f.err
}

func newLocker(t *testing.T) *redislock.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redislock.New(client)
}

func TestReconcileJob_PasaLosFiltros(t *testing.T) {
	rec := &fakeReconciler{report: &ledger.ReconcileReport{Checked: 3}}
	job := jobs.NewReconcileJob(rec, newLocker(t), time.Minute, nil, nil)

	task, err := jobs.NewReconcileTask(jobs.ReconcilePayload{Location: "central"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "central", rec.filter.Location)
	assert.Empty(t, rec.filter.ItemID)
}

func TestReconcileJob_ViolacionNoEsFalloDeLaTarea(t *testing.T) {
	violation := &domain.IntegrityViolationError{Location: "central", ItemID: "gasa"}
	rec := &fakeReconciler{
		report: &ledger.ReconcileReport{Checked: 1, Violations: []*domain.IntegrityViolationError{violation}},
		err:    violation,
	}
	jc := &jobCounter{}
	job := jobs.NewReconcileJob(rec, newLocker(t), time.Minute, nil, jc)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(jobs.TaskReconcile, nil)))
	require.Len(t, jc.runs[jobs.TaskReconcile], 1)
	assert.NoError(t, jc.runs[jobs.TaskReconcile][0])
}

func TestReconcileJob_ErrorDeInfraestructuraFallaLaTarea(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("db caída")}
	job := jobs.NewReconcileJob(rec, newLocker(t), time.Minute, nil, nil)

	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(jobs.TaskReconcile, nil)))
}

func TestReconcileJob_UnaSolaCorridaALaVez(t *testing.T) {
	locker := newLocker(t)
	rec := &fakeReconciler{started: make(chan struct{}), block: make(chan struct{})}
	job := jobs.NewReconcileJob(rec, locker, time.Minute, nil, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := job.Run(ctx, jobs.ReconcilePayload{})
		done <- err
	}()
	// la primera corrida ya tiene el lock cuando entra al conciliador
	<-rec.started

	_, err := job.Run(ctx, jobs.ReconcilePayload{})
	assert.ErrorIs(t, err, redislock.ErrNotObtained)
	// Handle lo trata como corrida omitida
	assert.NoError(t, job.Handle(ctx, asynq.NewTask(jobs.TaskReconcile, nil)))

	close(rec.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, rec.calls)
}
