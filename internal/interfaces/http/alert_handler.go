package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insumos-ledger/internal/application/dto"
	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// AlertHandler alertas de stock mínimo.
type AlertHandler struct {
	alerts *ledger.AlertUseCase
	log    *logger.Logger
}

func NewAlertHandler(alerts *ledger.AlertUseCase, log *logger.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, log: log}
}

// List godoc
// @Summary      Alertas abiertas
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Param        location  query  string  false  "Ubicación"
// @Success      200  {array}  dto.AlertResponse
// @Router       /api/alerts [get]
func (h *AlertHandler) List(c *fiber.Ctx) error {
	alerts, err := h.alerts.GetActiveAlerts(c.UserContext(), c.Query("location"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertResponse(a))
	}
	return c.JSON(out)
}

// UpdateState godoc
// @Summary      Cambiar estado de una alerta
// @Description  active → in_process → resolved; nunca hacia atrás.
// @Tags         alerts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID de la alerta"
// @Param        body  body  dto.UpdateAlertStateRequest  true  "state"
// @Success      200  {object}  dto.AlertResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/alerts/{id} [patch]
func (h *AlertHandler) UpdateState(c *fiber.Ctx) error {
	var in dto.UpdateAlertStateRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	a, err := h.alerts.UpdateAlertState(c.UserContext(), c.Params("id"), in.State)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toAlertResponse(a))
}
