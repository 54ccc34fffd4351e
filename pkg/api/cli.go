package api

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/livebus/pkg/elastic_client"
	"github.com/travigo/livebus/pkg/events"
	"github.com/travigo/livebus/pkg/lines"
	"github.com/travigo/livebus/pkg/positions"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the bus position sharing web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Value:   "10000",
						Usage:   "port to listen on, on all interfaces",
						EnvVars: []string{"PORT"},
					},
					&cli.StringFlag{
						Name:    "lines",
						Value:   "light.geojson",
						Usage:   "GeoJSON FeatureCollection of the lines",
						EnvVars: []string{"LIVEBUS_LINES_FILE"},
					},
					&cli.IntFlag{
						Name:    "events-buffer",
						Value:   1024,
						Usage:   "sharing events queued for Elasticsearch before new ones are dropped",
						EnvVars: []string{"LIVEBUS_EVENTS_BUFFER"},
					},
				},
				Action: func(c *cli.Context) error {
					catalog, err := lines.Load(c.String("lines"))
					if err != nil {
						return err
					}

					if err := elastic_client.Connect(false); err != nil {
						return err
					}

					listen := fmt.Sprintf("0.0.0.0:%s", c.String("port"))
					ln, err := net.Listen("tcp", listen)
					if err != nil {
						return err
					}
					log.Info().Str("listen", listen).Msg("Starting web api")

					publisher := events.NewElasticPublisher(c.Int("events-buffer"))
					webApp := NewApp(positions.NewStore(), catalog, publisher)

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					serveErr := Serve(webApp, ln, signals)

					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					publisher.Close()

					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()
					if err := elastic_client.Close(ctx); err != nil {
						log.Error().Err(err).Msg("Failed to flush sharing events to Elasticsearch")
					}

					return serveErr
				},
			},
		},
	}
}
