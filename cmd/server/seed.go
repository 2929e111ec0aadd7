package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ignatzorin/taskmarket-backend/internal/db"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/internal/repository"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
	"github.com/ignatzorin/taskmarket-backend/internal/ws"
)

// Демо-данные для локальной разработки. В production запуск запрещён.
var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Fill the database with demo posters, doers, tasks and bids",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "posters", Value: 5},
		&cli.IntFlag{Name: "doers", Value: 10},
		&cli.IntFlag{Name: "tasks", Value: 20},
		&cli.IntFlag{Name: "bids", Value: 3, Usage: "bids per task"},
		&cli.IntFlag{Name: "accept-every", Value: 4, Usage: "accept the first bid of every N-th task, 0 to disable"},
		&cli.StringFlag{Name: "password", Value: "Password123", Usage: "password for every demo account"},
		&cli.Int64Flag{Name: "random-seed", Usage: "fixed random seed, current time when empty"},
	},
	Action: seed,
}

func seed(cCtx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return cli.Exit("seed: запуск в production запрещён", 1)
	}

	conn, err := db.NewPostgres(cCtx.Context, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer safeClose(conn)

	// События никто не слушает, локальной шины достаточно.
	bus := ws.NewBus()

	userRepo := repository.NewUserRepository(conn)
	assignmentRepo := repository.NewAssignmentRepository(conn)
	paymentRepo := repository.NewPaymentRepository(conn)

	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(conn), userRepo, bus, nil, cfg.AppBaseURL)
	seeder := service.NewSeedService(
		service.NewAuthService(userRepo, tokens),
		service.NewAssignmentService(assignmentRepo, paymentRepo, bus, notifications),
		service.NewBidService(repository.NewBidRepository(conn), assignmentRepo, bus, notifications),
		randomSeed(cCtx),
	)

	result, err := seeder.Seed(cCtx.Context, service.SeedOptions{
		Posters:     cCtx.Int("posters"),
		Doers:       cCtx.Int("doers"),
		Tasks:       cCtx.Int("tasks"),
		BidsPerTask: cCtx.Int("bids"),
		AcceptEvery: cCtx.Int("accept-every"),
		Password:    cCtx.String("password"),
	})
	if err != nil {
		return err
	}

	logger.Log.WithField("tasks", result.Tasks).Info("main: демо-данные загружены")
	return nil
}

func randomSeed(cCtx *cli.Context) int64 {
	if cCtx.IsSet("random-seed") {
		return cCtx.Int64("random-seed")
	}
	return time.Now().UnixNano()
}
