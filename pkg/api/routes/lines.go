package routes

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/livebus/pkg/lines"
)

func LinesRouter(router fiber.Router, catalog *lines.Catalog) {
	router.Get("/:code", func(c *fiber.Ctx) error {
		return getLine(c, catalog)
	})
}

func getLine(c *fiber.Ctx, catalog *lines.Catalog) error {
	code, err := strconv.ParseInt(pathParam(c, "code"), 10, 64)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Code ligne invalide",
		})
	}

	feature, err := catalog.FindByCode(code)
	if errors.Is(err, lines.ErrLineNotFound) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Ligne non trouvée",
		})
	} else if err != nil {
		return err
	}

	// Sent as stored so that no member or coordinate of the feature is lost
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(feature)
}
