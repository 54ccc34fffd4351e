package routes

import "github.com/gofiber/fiber/v2"

const apiVersion = "1.0"

func ServiceInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "API de suivi de bus en temps réel",
		"version": apiVersion,
		"status":  "active",
		"endpoints": fiber.Map{
			"get_position":  "GET /api/position/{busNumber}",
			"post_position": "POST /api/position",
			"stop_sharing":  "POST /api/stopSharing",
			"get_line":      "GET /api/line/{busNumber}",
		},
	})
}

func APIVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": apiVersion,
	})
}
