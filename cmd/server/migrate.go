package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/ignatzorin/taskmarket-backend/internal/config"
	"github.com/ignatzorin/taskmarket-backend/internal/db"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/migrations"
)

var migrateCommand = &cli.Command{
	Name:   "migrate",
	Usage:  "Apply pending database migrations and exit",
	Action: migrate,
}

func migrate(cCtx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := db.NewPostgres(cCtx.Context, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer safeClose(conn)

	return applyMigrations(cCtx.Context, conn)
}

func applyMigrations(ctx context.Context, conn *sqlx.DB) error {
	applied, err := db.RunMigrations(ctx, conn, migrations.FS)
	if err != nil {
		return fmt.Errorf("main: ошибка миграций: %w", err)
	}
	logger.Log.WithField("applied", applied).Info("main: миграции применены")
	return nil
}

// loadConfig читает конфигурацию и настраивает логгер.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("main: ошибка загрузки конфигурации: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.IsProduction())
	return cfg, nil
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Warn("main: ошибка закрытия базы")
	}
}
