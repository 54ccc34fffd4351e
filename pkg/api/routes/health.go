package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/livebus/pkg/lines"
	"github.com/travigo/livebus/pkg/positions"
)

func HealthRoute(store *positions.Store, catalog *lines.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":         "OK",
			"activeVehicles": store.Count(),
			"lines":          catalog.Len(),
		})
	}
}
