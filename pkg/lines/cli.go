package lines

import (
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "lines",
		Usage: "Inspect the line geometry catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "load a lines file the same way the web api does and report its contents",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "lines",
						Value:   "light.geojson",
						Usage:   "GeoJSON FeatureCollection of the lines",
						EnvVars: []string{"LIVEBUS_LINES_FILE"},
					},
				},
				Action: func(c *cli.Context) error {
					catalog, err := Load(c.String("lines"))
					if err != nil {
						return err
					}

					log.Info().
						Int("features", catalog.Len()).
						Ints64("codes", catalog.Codes()).
						Msg("Lines catalog is valid")

					if uncoded := catalog.Uncoded(); uncoded > 0 {
						log.Warn().Int("features", uncoded).Msg("Features without an integer code cannot be looked up")
					}

					return nil
				},
			},
		},
	}
}
