package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insumos-ledger/internal/application/dto"
	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// ReconcileHandler conciliación y descongelamiento de pares.
type ReconcileHandler struct {
	uc  *ledger.ReconcileUseCase
	log *logger.Logger
}

func NewReconcileHandler(uc *ledger.ReconcileUseCase, log *logger.Logger) *ReconcileHandler {
	return &ReconcileHandler{uc: uc, log: log}
}

// Reconcile godoc
// @Summary      Conciliar stock, lotes y libro
// @Description  Los pares que no cuadran quedan congelados y se listan en violations.
// @Tags         reconciliation
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReconcileRequest  false  "filtros opcionales"
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/reconciliation [post]
func (h *ReconcileHandler) Reconcile(c *fiber.Ctx) error {
	var in dto.ReconcileRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	report, err := h.uc.Reconcile(c.UserContext(), in.Location, in.ItemID)
	// con descuadres el caso de uso devuelve el reporte junto al error: se responde 200
	if err != nil && report == nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toReconcileResponse(report))
}

// Unfreeze godoc
// @Summary      Descongelar un par tras la corrección manual
// @Tags         reconciliation
// @Security     Bearer
// @Accept       json
// @Param        body  body  dto.UnfreezeRequest  true  "location, item_id"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reconciliation/unfreeze [post]
func (h *ReconcileHandler) Unfreeze(c *fiber.Ctx) error {
	var in dto.UnfreezeRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	if err := h.uc.UnfreezePair(c.UserContext(), in.Location, in.ItemID, GetUserID(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
