package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"

	"github.com/jhoicas/insumos-ledger/docs"
	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/jobs"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/insumos-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/insumos-ledger/internal/interfaces/http"
	"github.com/jhoicas/insumos-ledger/pkg/config"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "api",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.Store).
		Msg("iniciando aplicación")

	ctx := context.Background()
	m := metrics.New()

	var (
		txRunner ledger.TxRunner
		catalog  ledger.Catalog
	)
	switch cfg.Ledger.Store {
	case "memory":
		store := memory.NewStore()
		store.AddCatalogItems(cfg.Ledger.SeedItems...)
		txRunner, catalog = store, store
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool, log); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		catalogRepo := postgres.NewCatalogRepository(pool)
		for _, item := range cfg.Ledger.SeedItems {
			if err := catalogRepo.Upsert(ctx, item, item); err != nil {
				log.Fatal().Err(err).Str("item_id", item).Msg("sembrar catálogo")
			}
		}
		runner := postgres.NewTxRunner(pool, cfg.Ledger.MaxRetries, log.Component("tx"))
		runner.OnRetry(m.TxRetry)
		txRunner, catalog = runner, catalogRepo
	}

	// Redis es opcional: sin él no hay caché de catálogo y las alertas solo quedan en el log.
	var enqueuer jobs.Enqueuer
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		catalog = cache.NewCatalogCache(catalog, rdb, cfg.Ledger.CatalogTTL, log.Component("catalog"))

		client := asynq.NewClient(jobs.RedisOpt(cfg.Redis))
		defer client.Close()
		enqueuer = client
	}

	deps := ledger.Deps{
		TxRunner: txRunner,
		Catalog:  catalog,
		Notifier: jobs.NewNotifier(enqueuer, log.Component("notifier"), m),
		Metrics:  m,
		Logger:   log.Component("ledger"),
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Insumos Ledger API",
		}))
	}
	app.Get("/openapi.json", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		return c.SendString(docs.SwaggerInfo.ReadDoc())
	})

	err = httpRouter.Router(app, httpRouter.RouterDeps{
		LocationUC:     ledger.NewLocationUseCase(deps),
		ReceiptUC:      ledger.NewReceiptUseCase(deps),
		TransferUC:     ledger.NewTransferUseCase(deps),
		ConsumptionUC:  ledger.NewConsumptionUseCase(deps),
		DecommissionUC: ledger.NewDecommissionUseCase(deps),
		AlertUC:        ledger.NewAlertUseCase(deps),
		ReconcileUC:    ledger.NewReconcileUseCase(deps),
		QueryUC:        ledger.NewQueryUseCase(deps),
		JWTSecret:      cfg.JWT.Secret,
		RateLimit:      cfg.Ledger.RateLimit,
		Observer:       m,
		MetricsHandler: m.Handler(),
		Logger:         log.Component("http"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("configurar rutas")
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
