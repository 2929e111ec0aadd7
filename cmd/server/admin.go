package main

import (
	"github.com/urfave/cli/v2"

	"github.com/ignatzorin/taskmarket-backend/internal/db"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/internal/repository"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
)

// Администраторы не регистрируются через API, их заводит оператор.
var createAdminCommand = &cli.Command{
	Name:  "create-admin",
	Usage: "Create an ADMIN account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "email", Required: true},
		&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
		&cli.StringFlag{Name: "name"},
	},
	Action: createAdmin,
}

func createAdmin(cCtx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := db.NewPostgres(cCtx.Context, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer safeClose(conn)

	tokens := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	auth := service.NewAuthService(repository.NewUserRepository(conn), tokens)

	admin, err := auth.CreateAdmin(cCtx.Context, cCtx.String("email"), cCtx.String("password"), cCtx.String("name"))
	if err != nil {
		return err
	}

	logger.Log.WithField("user_id", admin.ID).Info("main: администратор создан")
	return nil
}
