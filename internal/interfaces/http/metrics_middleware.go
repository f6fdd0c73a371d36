package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestObserver lo implementa metrics.Ledger.
type RequestObserver interface {
	ObserveRequest(route, method string, code int, elapsed time.Duration)
}

// MetricsMiddleware registra ruta, método, código y duración de cada petición.
func MetricsMiddleware(obs RequestObserver) fiber.Handler {
	if obs == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		code := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}
		// la plantilla de la ruta, no la URL concreta, para acotar la cardinalidad
		route := c.Route().Path
		obs.ObserveRequest(route, c.Method(), code, time.Since(start))
		return err
	}
}
