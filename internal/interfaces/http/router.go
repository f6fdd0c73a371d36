package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/pkg/jwt"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LocationUC     *ledger.LocationUseCase
	ReceiptUC      *ledger.ReceiptUseCase
	TransferUC     *ledger.TransferUseCase
	ConsumptionUC  *ledger.ConsumptionUseCase
	DecommissionUC *ledger.DecommissionUseCase
	AlertUC        *ledger.AlertUseCase
	ReconcileUC    *ledger.ReconcileUseCase
	QueryUC        *ledger.QueryUseCase
	JWTSecret      string
	RateLimit      string // formato ulule, vacío = sin límite
	Observer       RequestObserver
	MetricsHandler nethttp.Handler
	Logger         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) error {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	limit, err := RateLimitMiddleware(deps.RateLimit)
	if err != nil {
		return err
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", MetricsMiddleware(deps.Observer), AuthMiddleware(deps.JWTSecret))

	writers := RequireRole(jwt.RoleAdmin, jwt.RoleAlmacen)
	surgical := RequireRole(jwt.RoleAdmin, jwt.RoleAlmacen, jwt.RoleQuirofano)

	// Ubicaciones
	locationHandler := NewLocationHandler(deps.LocationUC, deps.DecommissionUC, deps.QueryUC, log)
	locations := api.Group("/locations")
	locations.Post("/", RequireRole(jwt.RoleAdmin), limit, locationHandler.Register)
	locations.Get("/:location", locationHandler.Get)
	locations.Get("/:location/lots", locationHandler.Lots)
	locations.Post("/:location/deactivate", RequireRole(jwt.RoleAdmin), limit, locationHandler.Deactivate)
	locations.Post("/:location/decommission", RequireRole(jwt.RoleAdmin), limit, locationHandler.Decommission)

	// Stock y libro
	stockHandler := NewStockHandler(deps.ReceiptUC, deps.AlertUC, deps.QueryUC, log)
	stock := api.Group("/stock")
	stock.Get("/", stockHandler.List)
	stock.Post("/receipts", writers, limit, stockHandler.Receive)
	stock.Post("/adjustments", writers, limit, stockHandler.Adjust)
	stock.Put("/thresholds", writers, limit, stockHandler.SetThreshold)
	api.Get("/movements", stockHandler.History)

	// Traslados
	transferHandler := NewTransferHandler(deps.TransferUC, log)
	api.Post("/transfers", writers, limit, transferHandler.Create)

	// Procedimientos
	procedureHandler := NewProcedureHandler(deps.ConsumptionUC, log)
	procedures := api.Group("/procedures")
	procedures.Post("/:id/consumption", surgical, limit, procedureHandler.Consume)
	procedures.Post("/:id/refund", RequireRole(jwt.RoleAdmin, jwt.RoleQuirofano), limit, procedureHandler.Refund)

	// Alertas
	alertHandler := NewAlertHandler(deps.AlertUC, log)
	alerts := api.Group("/alerts")
	alerts.Get("/", alertHandler.List)
	alerts.Patch("/:id", writers, limit, alertHandler.UpdateState)

	// Conciliación
	reconcileHandler := NewReconcileHandler(deps.ReconcileUC, log)
	reconciliation := api.Group("/reconciliation")
	reconciliation.Post("/", RequireRole(jwt.RoleAdmin, jwt.RoleAuditor), limit, reconcileHandler.Reconcile)
	reconciliation.Post("/unfreeze", RequireRole(jwt.RoleAdmin), limit, reconcileHandler.Unfreeze)

	return nil
}
