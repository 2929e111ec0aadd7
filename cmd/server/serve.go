package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/ignatzorin/taskmarket-backend/internal/config"
	"github.com/ignatzorin/taskmarket-backend/internal/db"
	"github.com/ignatzorin/taskmarket-backend/internal/goroutine"
	"github.com/ignatzorin/taskmarket-backend/internal/http/handlers"
	"github.com/ignatzorin/taskmarket-backend/internal/http/router"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/internal/mail"
	"github.com/ignatzorin/taskmarket-backend/internal/repository"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
	"github.com/ignatzorin/taskmarket-backend/internal/storage"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
	"github.com/ignatzorin/taskmarket-backend/internal/ws"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "skip-migrations",
			Usage: "Do not apply migrations on startup",
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Component("main")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer safeClose(dbConn)

	if !cCtx.Bool("skip-migrations") {
		if err := applyMigrations(ctx, dbConn); err != nil {
			return err
		}
	}

	// Шина событий: без Redis работает в пределах процесса.
	busOpts := []ws.BusOption{}
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("main: некорректный REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer func() {
			if err := rdb.Close(); err != nil {
				log.WithError(err).Warn("ошибка закрытия redis")
			}
		}()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("main: redis недоступен: %w", err)
		}
		busOpts = append(busOpts, ws.WithRedis(rdb, cfg.EventHistoryTTL, cfg.EventHistoryMax))
		log.Info("шина событий работает через redis")
	}
	bus := ws.NewBus(busOpts...)

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return err
	}

	// Почта необязательна.
	var mailer service.Mailer
	if m := mail.New(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}); m != nil {
		mailer = m
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	assignmentRepo := repository.NewAssignmentRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	submissionRepo := repository.NewSubmissionRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	messageRepo := repository.NewMessageRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(userRepo, tokenManager)
	cache := service.NewCacheService()
	goroutine.SafeGoWithContext(ctx, "cache-cleanup", cache.Run)
	mailUsers := service.NewCachedUsers(userRepo, cache, 5*time.Minute)
	notificationService := service.NewNotificationService(notificationRepo, mailUsers, bus, mailer, cfg.AppBaseURL)
	assignmentService := service.NewAssignmentService(assignmentRepo, paymentRepo, bus, notificationService)
	bidService := service.NewBidService(bidRepo, assignmentRepo, bus, notificationService)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, disputeRepo, paymentRepo, bus, notificationService)
	disputeService := service.NewDisputeService(disputeRepo, assignmentRepo, paymentRepo, userRepo, bus, notificationService)
	messageService := service.NewMessageService(messageRepo, assignmentRepo, disputeRepo, paymentRepo, bus)

	// Вебсокеты.
	hub := ws.NewHub(bus, service.NewChannelAuthorizer(assignmentRepo, bidRepo))
	goroutine.SafeGoWithContext(ctx, "event-bus", bus.Run)
	goroutine.SafeGoWithContext(ctx, "ws-hub", hub.Run)

	// HTTP хэндлеры.
	v := validation.New()
	health := handlers.NewHealthHandler(dbConn)
	if rdb != nil {
		health.With("redis", handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}

	engine := router.SetupRouter(cfg, router.Handlers{
		Auth:          handlers.NewAuthHandler(authService, v),
		Tasks:         handlers.NewTaskHandler(assignmentService, v),
		Bids:          handlers.NewBidHandler(bidService, v),
		Submissions:   handlers.NewSubmissionHandler(submissionService, v),
		Messages:      handlers.NewMessageHandler(messageService, v),
		Disputes:      handlers.NewDisputeHandler(disputeService, v),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Media:         handlers.NewMediaHandler(uploader),
		WS:            handlers.NewWSHandler(hub, tokenManager, bus, cfg.AllowedOrigins),
		Health:        health,
	}, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("ошибка остановки http сервера")
		}
	})

	log.WithField("port", cfg.HTTPPort).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("main: сервер завершился с ошибкой: %w", err)
	}

	// Хаб, шина и отправка писем должны закончиться до закрытия базы и redis.
	stop()
	if err := goroutine.Wait(15 * time.Second); err != nil {
		log.WithError(err).Warn("остановка без ожидания фоновых задач")
	}
	return nil
}

// newUploader выбирает хранилище вложений по STORAGE_DRIVER.
func newUploader(ctx context.Context, cfg *config.Config) (*storage.Uploader, error) {
	var store storage.Store
	switch cfg.StorageDriver {
	case "s3":
		s3Store, err := storage.NewS3StoreFromEnv(ctx, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			return nil, err
		}
		store = s3Store
	default:
		local, err := storage.NewLocalStore(cfg.MediaStoragePath, cfg.MediaPublicURL)
		if err != nil {
			return nil, fmt.Errorf("main: не удалось подготовить файловое хранилище: %w", err)
		}
		store = local
	}
	return storage.NewUploader(store, cfg.MaxUploadSizeMB), nil
}
