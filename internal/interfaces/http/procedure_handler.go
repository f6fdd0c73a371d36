package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insumos-ledger/internal/application/dto"
	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// ProcedureHandler consumo de insumos por procedimiento y reembolso por cancelación.
type ProcedureHandler struct {
	uc  *ledger.ConsumptionUseCase
	log *logger.Logger
}

func NewProcedureHandler(uc *ledger.ConsumptionUseCase, log *logger.Logger) *ProcedureHandler {
	return &ProcedureHandler{uc: uc, log: log}
}

// Consume godoc
// @Summary      Registrar consumo de un procedimiento
// @Tags         procedures
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID del procedimiento"
// @Param        body  body  dto.ConsumeRequest  true  "warehouse_id (provisional) e items"
// @Success      201   {object}  dto.ConsumptionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/procedures/{id}/consumption [post]
func (h *ProcedureHandler) Consume(c *fiber.Ctx) error {
	var in dto.ConsumeRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	res, err := h.uc.ConsumeForProcedure(c.UserContext(), ledger.ConsumeInputDTO{
		WarehouseID: in.WarehouseID,
		ProcedureID: c.Params("id"),
		Items:       toItems(in.Items),
		ActorID:     GetUserID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toConsumptionResponse(res))
}

// Refund godoc
// @Summary      Reembolso por cancelación
// @Description  Devuelve exactamente lo consumido. Un segundo reembolso responde 409 ALREADY_REFUNDED.
// @Tags         procedures
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del procedimiento"
// @Success      200  {object}  dto.RefundResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/procedures/{id}/refund [post]
func (h *ProcedureHandler) Refund(c *fiber.Ctx) error {
	res, err := h.uc.RefundProcedure(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toRefundResponse(res))
}
