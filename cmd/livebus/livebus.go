package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livebus/pkg/api"
	"github.com/travigo/livebus/pkg/lines"
	"github.com/travigo/livebus/pkg/util"
	"github.com/urfave/cli/v2"
)

func configureLogging() {
	if util.GetEnvironmentVariable("LIVEBUS_LOG_FORMAT", "CONSOLE") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if util.GetEnvironmentVariable("LIVEBUS_DEBUG", "NO") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}
}

func main() {
	configureLogging()

	app := &cli.App{
		Name:        "livebus",
		Description: "Realtime bus position sharing - vehicles push their location, riders poll it",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			lines.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
