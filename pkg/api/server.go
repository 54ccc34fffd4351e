package api

import (
	"net"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livebus/pkg/api/routes"
	"github.com/travigo/livebus/pkg/events"
	"github.com/travigo/livebus/pkg/http_server"
	"github.com/travigo/livebus/pkg/lines"
	"github.com/travigo/livebus/pkg/positions"
)

const shutdownTimeout = 10 * time.Second

func NewApp(store *positions.Store, catalog *lines.Catalog, publisher events.Publisher) *fiber.App {
	webApp := fiber.New(fiber.Config{
		AppName:               "livebus",
		DisableStartupMessage: true,
		ErrorHandler:          http_server.ErrorHandler,
	})
	webApp.Use(http_server.NewLogger())
	webApp.Use(recover.New())
	webApp.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	webApp.Get("/", routes.ServiceInfo)
	webApp.Get("/version", routes.APIVersion)
	webApp.Get("/health", routes.HealthRoute(store, catalog))

	group := webApp.Group("/api")

	routes.PositionsRouter(group, store, publisher)
	routes.LinesRouter(group.Group("/line"), catalog)

	return webApp
}

// Serve runs webApp on ln until a signal arrives or the server fails. After a
// signal, in-flight requests get shutdownTimeout to complete.
func Serve(webApp *fiber.App, ln net.Listener, signals <-chan os.Signal) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- webApp.Listener(ln)
	}()

	select {
	case err := <-serverErr:
		return err
	case sig := <-signals:
		log.Info().Str("signal", sig.String()).Msg("Shutting down web api")
	}

	if err := webApp.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}

	return <-serverErr
}
