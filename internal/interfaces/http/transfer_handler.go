package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insumos-ledger/internal/application/dto"
	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// TransferHandler traslados entre ubicaciones.
type TransferHandler struct {
	uc  *ledger.TransferUseCase
	log *logger.Logger
}

func NewTransferHandler(uc *ledger.TransferUseCase, log *logger.Logger) *TransferHandler {
	return &TransferHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Trasladar insumos
// @Description  Uno o varios insumos entre dos ubicaciones. mode=atomic (por defecto) es todo o nada;
// @Description  best_effort traslada lo disponible por línea.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "from, to, items, mode, batch_ref"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse  "INSUFFICIENT_STOCK con el detalle por insumo"
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	res, err := h.uc.TransferStock(c.UserContext(), ledger.TransferInputDTO{
		From:     in.From,
		To:       in.To,
		Items:    toItems(in.Items),
		ActorID:  GetUserID(c),
		Reason:   in.Reason,
		Mode:     in.Mode,
		BatchRef: in.BatchRef,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransferResponse(res))
}
