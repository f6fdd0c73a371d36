package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/jobs"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/insumos-ledger/pkg/config"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// worker procesa los avisos de alertas y violaciones y corre la conciliación periódica.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "worker",
	})
	if !cfg.Redis.Enabled() {
		log.Fatal().Msg("el worker requiere REDIS_ADDR")
	}
	if cfg.Ledger.Store != "postgres" {
		log.Fatal().Str("store", cfg.Ledger.Store).Msg("el worker solo concilia sobre PostgreSQL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Redis")
	}
	defer rdb.Close()

	client := asynq.NewClient(jobs.RedisOpt(cfg.Redis))
	defer client.Close()

	runner := postgres.NewTxRunner(pool, cfg.Ledger.MaxRetries, log.Component("tx"))
	runner.OnRetry(m.TxRetry)
	reconcileUC := ledger.NewReconcileUseCase(ledger.Deps{
		TxRunner: runner,
		Catalog:  postgres.NewCatalogRepository(pool),
		Notifier: jobs.NewNotifier(client, log.Component("notifier"), m),
		Metrics:  m,
		Logger:   log.Component("ledger"),
	})

	reconcileTask, err := jobs.NewReconcileTask(jobs.ReconcilePayload{})
	if err != nil {
		log.Fatal().Err(err).Msg("tarea de conciliación")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   jobs.RedisOpt(cfg.Redis),
		Logger:      log,
		Concurrency: 5,
		Alerts:      jobs.NewAlertHandler(log, m),
		Reconcile:   jobs.NewReconcileJob(reconcileUC, redislock.New(rdb), 15*time.Minute, log, m),
		Cron: []jobs.CronRegistration{
			{Spec: cfg.Ledger.ReconcileCron, Task: reconcileTask},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("configurar worker")
	}

	if cfg.Ledger.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.Ledger.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("servidor de métricas finalizado")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker finalizado con error")
	}
	log.Info().Msg("worker detenido")
}
