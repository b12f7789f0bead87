package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	server := &srv{ctx: context.Background()}

	app := &cli.App{
		Name:  "prizelab",
		Usage: "Raffle and jackpot backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.toml",
				Usage: "path of the configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "api",
				Usage:  "Serve the HTTP API",
				Action: server.startApi,
			},
			{
				Name:   "cron",
				Usage:  "Run the periodic lifecycle jobs",
				Action: server.startCron,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
