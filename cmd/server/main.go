package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ignatzorin/taskmarket-backend/internal/logger"
)

func main() {
	app := &cli.App{
		Name:   "taskmarket",
		Usage:  "Task marketplace API server",
		Action: serve,
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			createAdminCommand,
			seedCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.WithError(err).Fatal("application failed")
	}
}
