package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insumos-ledger/internal/application/dto"
	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/internal/domain/entity"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// StockHandler recepciones, ajustes, umbrales y consultas de stock y libro.
type StockHandler struct {
	receipts *ledger.ReceiptUseCase
	alerts   *ledger.AlertUseCase
	query    *ledger.QueryUseCase
	log      *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(receipts *ledger.ReceiptUseCase, alerts *ledger.AlertUseCase, query *ledger.QueryUseCase, log *logger.Logger) *StockHandler {
	return &StockHandler{receipts: receipts, alerts: alerts, query: query, log: log}
}

// Receive godoc
// @Summary      Recepción de compra
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveStockRequest  true  "location, item_id, quantity, expires_at"
// @Success      201   {object}  dto.StockMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/receipts [post]
func (h *StockHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveStockRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	res, err := h.receipts.ReceiveStock(c.UserContext(), ledger.ReceiveInputDTO{
		Location:  in.Location,
		ItemID:    in.ItemID,
		Quantity:  in.Quantity,
		ExpiresAt: in.ExpiresAt,
		ActorID:   GetUserID(c),
		Note:      in.Note,
		Reference: in.Reference,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStockMovementResponse(res))
}

// Adjust godoc
// @Summary      Ajuste de stock con motivo
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "delta firmado y motivo obligatorio"
// @Success      201   {object}  dto.StockMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/adjustments [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	res, err := h.receipts.AdjustStock(c.UserContext(), ledger.AdjustInputDTO{
		Location:  in.Location,
		ItemID:    in.ItemID,
		Delta:     in.Delta,
		ExpiresAt: in.ExpiresAt,
		ActorID:   GetUserID(c),
		Reason:    in.Reason,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStockMovementResponse(res))
}

// SetThreshold godoc
// @Summary      Fijar umbral mínimo
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SetThresholdRequest  true  "location, item_id, minimum"
// @Success      200   {object}  dto.StockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stock/thresholds [put]
func (h *StockHandler) SetThreshold(c *fiber.Ctx) error {
	var in dto.SetThresholdRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	st, err := h.alerts.SetMinimumThreshold(c.UserContext(), ledger.SetThresholdInputDTO{
		Location: in.Location,
		ItemID:   in.ItemID,
		Minimum:  in.Minimum,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toStockResponse(st))
}

// List godoc
// @Summary      Stock consolidado
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        location  query  string  false  "Ubicación (vacío: todas)"
// @Param        item_id   query  string  false  "Insumo"
// @Success      200  {array}   dto.StockResponse
// @Router       /api/stock [get]
func (h *StockHandler) List(c *fiber.Ctx) error {
	rows, err := h.query.GetConsolidatedStock(c.UserContext(), c.Query("location"), c.Query("item_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.StockResponse, 0, len(rows))
	for _, s := range rows {
		out = append(out, toStockResponse(s))
	}
	return c.JSON(out)
}

// History godoc
// @Summary      Historial del libro de movimientos
// @Description  Requiere location o procedure_id. Fechas en RFC 3339.
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        location      query  string  false  "Ubicación"
// @Param        item_id       query  string  false  "Insumo"
// @Param        procedure_id  query  string  false  "Procedimiento"
// @Param        since         query  string  false  "Desde (RFC 3339)"
// @Param        until         query  string  false  "Hasta (RFC 3339)"
// @Param        limit         query  int     false  "Límite"  default(50)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *StockHandler) History(c *fiber.Ctx) error {
	var q dto.MovementHistoryQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	if ok, err := checkStruct(c, &q); !ok {
		return err
	}
	filter := entity.MovementFilter{
		Location:    q.Location,
		ItemID:      q.ItemID,
		ProcedureID: q.ProcedureID,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if q.Since != "" {
		t, _ := time.Parse(time.RFC3339, q.Since)
		filter.Since = &t
	}
	if q.Until != "" {
		t, _ := time.Parse(time.RFC3339, q.Until)
		filter.Until = &t
	}
	page, err := h.query.GetMovementHistory(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.MovementListResponse{
		Records: make([]dto.MovementResponse, 0, len(page.Records)),
		Page:    dto.PageResponse{Limit: page.Limit, Offset: page.Offset, HasMore: page.HasMore},
	}
	for _, m := range page.Records {
		out.Records = append(out.Records, toMovementResponse(m))
	}
	return c.JSON(out)
}
