package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livebus/pkg/ctdf"
	"github.com/travigo/livebus/pkg/events"
	"github.com/travigo/livebus/pkg/positions"
)

var validate = validator.New()

// Any timestamp sent by the client is ignored, positions are stamped by the store.
type positionRequest struct {
	BusNumber string   `json:"busNumber" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type stopSharingRequest struct {
	BusNumber string `json:"busNumber" validate:"required"`
}

type positionsRoutes struct {
	store     *positions.Store
	publisher events.Publisher
}

func PositionsRouter(router fiber.Router, store *positions.Store, publisher events.Publisher) {
	positionsRoutes := &positionsRoutes{
		store:     store,
		publisher: publisher,
	}

	router.Post("/position", positionsRoutes.savePosition)
	router.Get("/position/:busNumber?", positionsRoutes.getPosition)
	router.Post("/stopSharing", positionsRoutes.stopSharing)
}

func (r *positionsRoutes) savePosition(c *fiber.Ctx) error {
	var request positionRequest
	if err := decodeBody(c, &request); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Données manquantes",
		})
	}

	position, created := r.store.Upsert(request.BusNumber, *request.Latitude, *request.Longitude)

	log.Debug().
		Str("busNumber", request.BusNumber).
		Float64("latitude", position.Latitude).
		Float64("longitude", position.Longitude).
		Msg("Position saved")

	if created {
		log.Info().Str("busNumber", request.BusNumber).Msg("Sharing started")

		r.publisher.Publish(ctdf.SharingEvent{
			Timestamp: position.Time(),
			Type:      ctdf.SharingEventTypeStarted,
			BusNumber: request.BusNumber,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Position enregistrée",
	})
}

func (r *positionsRoutes) getPosition(c *fiber.Ctx) error {
	busNumber := pathParam(c, "busNumber")
	if busNumber == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Bus manquant",
		})
	}

	position, err := r.store.Get(busNumber)
	if errors.Is(err, positions.ErrPositionNotFound) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Bus introuvable",
		})
	} else if err != nil {
		return err
	}

	return c.JSON(position)
}

func (r *positionsRoutes) stopSharing(c *fiber.Ctx) error {
	var request stopSharingRequest
	if err := decodeBody(c, &request); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Numéro de bus manquant",
		})
	}

	err := r.store.Remove(request.BusNumber)
	if errors.Is(err, positions.ErrPositionNotFound) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Bus introuvable",
		})
	} else if err != nil {
		return err
	}

	log.Info().Str("busNumber", request.BusNumber).Msg("Sharing stopped")

	r.publisher.Publish(ctdf.SharingEvent{
		Timestamp: time.Now(),
		Type:      ctdf.SharingEventTypeStopped,
		BusNumber: request.BusNumber,
	})

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Partage arrêté pour le bus %s", request.BusNumber),
	})
}

func decodeBody(c *fiber.Ctx, request interface{}) error {
	if err := json.Unmarshal(c.Body(), request); err != nil {
		return err
	}

	return validate.Struct(request)
}

// pathParam decodes a route parameter taken from the raw path. Only percent escapes
// are decoded, a '+' stays a '+'. Malformed escapes are kept as they were sent.
func pathParam(c *fiber.Ctx, key string) string {
	raw := c.Params(key)

	value, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return value
}
