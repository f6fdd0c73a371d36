// Package metrics colectores Prometheus del libro de insumos y de la capa HTTP.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain"
)

var _ ledger.Metrics = (*Ledger)(nil)

// Ledger agrupa los colectores. Cada instancia usa su propio registry para que los tests no
// choquen con el registry global.
type Ledger struct {
	registry        *prometheus.Registry
	handler         http.Handler
	operations      *prometheus.CounterVec
	txRetries       prometheus.Counter
	alertsOpened    prometheus.Counter
	violations      prometheus.Counter
	jobRuns         *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registra los colectores en un registry nuevo.
func New() *Ledger {
	registry := prometheus.NewRegistry()
	m := &Ledger{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Operaciones del libro por tipo y resultado.",
		}, []string{"operation", "result"}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_tx_retries_total",
			Help: "Transacciones reintentadas por conflicto de serialización.",
		}),
		alertsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_alerts_opened_total",
			Help: "Alertas de stock mínimo abiertas.",
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_integrity_violations_total",
			Help: "Pares congelados por descuadre entre stock, lotes y libro.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_job_runs_total",
			Help: "Ejecuciones de tareas en segundo plano por tipo y estado.",
		}, []string{"job", "status"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Peticiones HTTP por ruta, método y código.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "Duración de peticiones HTTP por ruta.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	registry.MustRegister(
		m.operations, m.txRetries, m.alertsOpened, m.violations, m.jobRuns,
		m.requestsTotal, m.requestDuration,
		prometheus.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler endpoint /metrics.
func (m *Ledger) Handler() http.Handler {
	return m.handler
}

// Registry expone el registry (tests y colectores adicionales).
func (m *Ledger) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation implementa ledger.Metrics.
func (m *Ledger) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, Result(err)).Inc()
}

// Result etiqueta de resultado según la familia del error.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrPairFrozen):
		return "frozen"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyRefunded):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrLocationInactive):
		return "rejected"
	}
	return "error"
}

// TxRetry se registra como observador del TxRunner de postgres.
func (m *Ledger) TxRetry() {
	if m != nil {
		m.txRetries.Inc()
	}
}

func (m *Ledger) AlertOpened() {
	if m != nil {
		m.alertsOpened.Inc()
	}
}

func (m *Ledger) IntegrityViolation() {
	if m != nil {
		m.violations.Inc()
	}
}

// JobRun cuenta una ejecución de tarea y devuelve err sin tocarlo.
func (m *Ledger) JobRun(job string, err error) error {
	if m == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
	return err
}

// ObserveRequest registra una petición HTTP ya respondida.
func (m *Ledger) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
