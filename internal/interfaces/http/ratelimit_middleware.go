package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/jhoicas/insumos-ledger/internal/application/dto"
)

// RateLimitMiddleware limita las escrituras por actor (o por IP si no hay actor) con el formato
// de ulule/limiter, p. ej. "120-M". Con rate vacío no limita.
func RateLimitMiddleware(rate string) (fiber.Handler, error) {
	if rate == "" {
		return func(c *fiber.Ctx) error { return c.Next() }, nil
	}
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), r)

	return func(c *fiber.Ctx) error {
		key := GetUserID(c)
		if key == "" {
			key = "ip:" + c.IP()
		}
		lc, err := instance.Get(c.UserContext(), key)
		if err != nil {
			// sin store de límites se deja pasar: el libro no depende de él
			return c.Next()
		}
		c.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))
		if lc.Reached {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RATE_LIMITED", Message: "demasiadas solicitudes, intente más tarde"})
		}
		return c.Next()
	}, nil
}
