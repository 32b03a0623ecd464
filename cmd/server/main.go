package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/quizzo-backend/internal/config"
	"github.com/ignatzorin/quizzo-backend/internal/db"
	httpHandlers "github.com/ignatzorin/quizzo-backend/internal/http/handlers"
	"github.com/ignatzorin/quizzo-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/quizzo-backend/internal/http/router"
	"github.com/ignatzorin/quizzo-backend/internal/logger"
	"github.com/ignatzorin/quizzo-backend/internal/metrics"
	"github.com/ignatzorin/quizzo-backend/internal/models"
	"github.com/ignatzorin/quizzo-backend/internal/notify"
	"github.com/ignatzorin/quizzo-backend/internal/repository"
	"github.com/ignatzorin/quizzo-backend/internal/service"
	"github.com/ignatzorin/quizzo-backend/internal/storage"
	"github.com/ignatzorin/quizzo-backend/internal/validation"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Setup(cfg.Env)
	validation.RegisterGinValidators()

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.L().Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn); err != nil {
		logger.L().Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis нужен только для общего store лимитера.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.L().Fatalf("main: %v", err)
		}
		defer closeRedis(rdb)
	}

	limiterStore, err := middleware.NewLimiterStore(rdb)
	if err != nil {
		logger.L().Fatalf("main: %v", err)
	}

	collector := metrics.New()

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	sessionRepo := repository.NewSessionRepository(dbConn)
	otpRepo := repository.NewOTPRepository(dbConn)

	// Доставка кодов.
	dispatcher := notify.NewDispatcher(newSMSSender(cfg), newEmailSender(cfg))

	otpService := service.NewOTPService(otpRepo, dispatcher, cfg.OTPTTL, cfg.IsProduction())
	otpService.OnIssued(func(channel models.OTPChannel, delivered bool) {
		collector.OTPIssued.WithLabelValues(string(channel), strconv.FormatBool(delivered)).Inc()
	})
	otpService.StartCleanup(ctx, cfg.OTPCleanupInterval)

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(userRepo, sessionRepo, otpService, tokenManager, dispatcher)

	objectStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.L().Fatalf("main: не удалось подготовить хранилище: %v", err)
	}

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	uploadHandler := httpHandlers.NewUploadHandler(objectStore, cfg.MaxUploadSizeMB)
	healthHandler := httpHandlers.NewHealthHandler(dbConn, rdb)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		collector,
		middleware.NewRateLimiter(limiterStore, collector),
		tokenManager,
		authHandler,
		uploadHandler,
		healthHandler,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L().Errorf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	logger.L().WithField("env", cfg.Env).Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L().Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// newSMSSender возвращает Twilio или nil, если реквизиты не заданы.
func newSMSSender(cfg *config.Config) notify.SMSSender {
	sender, err := notify.NewTwilioSender(cfg.Twilio)
	if err != nil {
		logger.L().WithError(err).Warn("main: SMS доставка отключена")
		return nil
	}
	return sender
}

// newEmailSender возвращает SMTP или nil, если почта не настроена.
func newEmailSender(cfg *config.Config) notify.EmailSender {
	sender, err := notify.NewSMTPSender(cfg.SMTP)
	if err != nil {
		logger.L().WithError(err).Warn("main: email доставка отключена")
		return nil
	}
	return sender
}

// newObjectStore выбирает R2, если бакет настроен, иначе локальный диск.
func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.R2.Configured() {
		logger.L().WithField("bucket", cfg.R2.Bucket).Info("main: фотографии сохраняются в Cloudflare R2")
		return storage.NewR2Store(ctx, cfg.R2)
	}
	logger.L().WithField("path", cfg.MediaStoragePath).Warn("main: R2 не настроен, фотографии сохраняются на диск")
	return storage.NewLocalStore(cfg.MediaStoragePath, cfg.MediaPublicURL, cfg.MaxUploadSizeMB)
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.L().Errorf("main: ошибка закрытия базы: %v", err)
	}
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		logger.L().Errorf("main: ошибка закрытия redis: %v", err)
	}
}
