package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insumos-ledger/internal/application/dto"
	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

// LocationHandler maestro de ubicaciones y baja de almacenes provisionales.
type LocationHandler struct {
	locations    *ledger.LocationUseCase
	decommission *ledger.DecommissionUseCase
	query        *ledger.QueryUseCase
	log          *logger.Logger
}

// NewLocationHandler construye el handler.
func NewLocationHandler(locations *ledger.LocationUseCase, decommission *ledger.DecommissionUseCase, query *ledger.QueryUseCase, log *logger.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, decommission: decommission, query: query, log: log}
}

// Register godoc
// @Summary      Registrar ubicación
// @Description  general (una por hospital), provisional (requiere el general activo del hospital) o central (única).
// @Tags         locations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterLocationRequest  true  "kind, id, hospital_id, name"
// @Success      201   {object}  dto.LocationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/locations [post]
func (h *LocationHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterLocationRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	w, err := h.locations.RegisterLocation(c.UserContext(), ledger.RegisterLocationInputDTO{
		Kind:       in.Kind,
		ID:         in.ID,
		HospitalID: in.HospitalID,
		Name:       in.Name,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toLocationResponse(w))
}

// Get godoc
// @Summary      Obtener ubicación
// @Tags         locations
// @Security     Bearer
// @Produce      json
// @Param        location  path  string  true  "Ubicación canónica (general:h-1, provisional:qx-1, central)"
// @Success      200  {object}  dto.LocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/locations/{location} [get]
func (h *LocationHandler) Get(c *fiber.Ctx) error {
	w, err := h.locations.GetLocation(c.UserContext(), c.Params("location"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toLocationResponse(w))
}

// Lots godoc
// @Summary      Lotes con saldo de una ubicación
// @Tags         locations
// @Security     Bearer
// @Produce      json
// @Param        location  path  string  true  "Ubicación canónica"
// @Success      200  {array}   dto.LotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/locations/{location}/lots [get]
func (h *LocationHandler) Lots(c *fiber.Ctx) error {
	lots, err := h.query.GetLots(c.UserContext(), c.Params("location"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.LotResponse, 0, len(lots))
	for _, l := range lots {
		out = append(out, toLotResponse(l))
	}
	return c.JSON(out)
}

// Deactivate godoc
// @Summary      Desactivar almacén general o central
// @Description  Solo sin stock. Los provisionales se dan de baja con /decommission.
// @Tags         locations
// @Security     Bearer
// @Param        location  path  string  true  "Ubicación canónica"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/locations/{location}/deactivate [post]
func (h *LocationHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.locations.DeactivateLocation(c.UserContext(), c.Params("location")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Decommission godoc
// @Summary      Dar de baja un almacén provisional
// @Description  returnAll devuelve todo al general del hospital; discard lo descarta con motivo obligatorio.
// @Tags         locations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        location  path  string                   true  "provisional:<id>"
// @Param        body      body  dto.DecommissionRequest  true  "policy, reason"
// @Success      200  {object}  dto.DecommissionResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/locations/{location}/decommission [post]
func (h *LocationHandler) Decommission(c *fiber.Ctx) error {
	var in dto.DecommissionRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	res, err := h.decommission.DecommissionWarehouse(c.UserContext(), ledger.DecommissionInputDTO{
		WarehouseID: c.Params("location"),
		Policy:      in.Policy,
		ActorID:     GetUserID(c),
		Reason:      in.Reason,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toDecommissionResponse(res))
}
