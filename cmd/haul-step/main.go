package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/someonegg/haulmatch/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "haul-step",
		Usage: "Utility for running one logistics step over a scenario",
		Commands: []*cli.Command{
			matchCmd,
			validateCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
}

var matchCmd = &cli.Command{
	Name:    "match",
	Usage:   "Match carriers with the offers and requests of a scenario",
	Aliases: []string{"m"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "scenario",
			Required: true,
			Usage:    "specify the input scenario (.json, .yaml, optionally .zst)",
		},
		&cli.StringFlag{
			Name:  "out",
			Value: "-",
			Usage: "specify the output report.json, - for stdout",
		},
		&cli.StringFlag{
			Name:  "config",
			Value: config.DefaultConfigFile,
			Usage: "specify the config yaml",
		},
		&cli.StringFlag{
			Name:  "metrics-out",
			Usage: "specify the output metrics file (prometheus text format)",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "log at debug level",
		},
	},
	Action: func(ctx *cli.Context) error {
		return doMatch(ctx.Context, matchArgs{
			scenarioFile: ctx.String("scenario"),
			outFile:      ctx.String("out"),
			configFile:   ctx.String("config"),
			metricsFile:  ctx.String("metrics-out"),
			verbose:      ctx.Bool("verbose"),
		}, os.Stdout, os.Stderr)
	},
}

var validateCmd = &cli.Command{
	Name:    "validate",
	Usage:   "Validate scenarios against the snapshot schema",
	Aliases: []string{"v"},
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "scenario",
			Required: true,
			Usage:    "specify the input scenarios, repeatable",
		},
		&cli.IntFlag{
			Name:  "jobs",
			Value: 4,
			Usage: "specify how many scenarios are validated at once",
		},
	},
	Action: func(ctx *cli.Context) error {
		jobs := ctx.Int("jobs")
		if jobs <= 0 {
			return errors.New("invalid jobs")
		}
		return doValidate(ctx.Context, ctx.StringSlice("scenario"), jobs, os.Stdout)
	},
}
