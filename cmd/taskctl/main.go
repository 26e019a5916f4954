package main

import (
	"fmt"
	"os"

	"rankedtasks/internal/logger"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "taskctl",
		Usage: "Administer the ranked task store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    paramDatabaseURL,
				EnvVars: []string{"DATABASE_URL"},
				Usage:   "Postgres connection string",
			},
			&cli.StringFlag{
				Name:    paramLogLevel,
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
			},
		},
		Before: func(ctx *cli.Context) error {
			logger.Init(ctx.String(paramLogLevel), "text")
			return nil
		},
		Commands: []*cli.Command{
			migrateCommand(),
			seedCommand(),
			listCommand(),
			rebalanceCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
