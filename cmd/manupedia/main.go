// Точка входа Manupedia Backend — сервис каталога рукописей.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// инициализирует хранилище изображений, кэш, сервисный слой и API handlers,
// запускает мониторинг зависимостей (topologymetrics),
// HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/manupedia/manupedia-backend/internal/api/handlers"
	"github.com/manupedia/manupedia-backend/internal/api/middleware"
	"github.com/manupedia/manupedia-backend/internal/config"
	"github.com/manupedia/manupedia-backend/internal/database"
	"github.com/manupedia/manupedia-backend/internal/repository"
	"github.com/manupedia/manupedia-backend/internal/server"
	"github.com/manupedia/manupedia-backend/internal/service"
	"github.com/manupedia/manupedia-backend/internal/storage/imagestore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Manupedia Backend запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("MP_DEPHEALTH_GROUP") == "" {
		logger.Warn("MP_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Хранилище изображений на диске
	images, err := imagestore.New(cfg.UploadDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища изображений",
			slog.String("dir", cfg.UploadDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Хранилище изображений готово", slog.String("dir", cfg.UploadDir))

	// 6. Repositories
	manuscriptRepo := repository.NewManuscriptRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// 7. Кэш и сервисный слой
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	manuscriptsSvc := service.NewManuscriptService(manuscriptRepo, images, cache, logger)
	moderationSvc := service.NewModerationService(manuscriptsSvc, manuscriptRepo, cache, logger)
	usersSvc := service.NewUserService(userRepo)

	// 8. Readiness checkers (PostgreSQL + IdP JWKS)
	pgChecker := database.NewReadinessChecker(pool)
	idpChecker, err := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.CACertPath, cfg.TLSSkipVerify, 5*time.Second)
	if err != nil {
		logger.Error("Ошибка создания JWKS readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, idpChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, manuscriptsSvc, moderationSvc, usersSvc, logger)

	// 10. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.CACertPath,
		cfg.TLSSkipVerify,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
	)

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"manupedia-backend",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
			defer dephealthSvc.Stop()
		}
	}

	// 12. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Manupedia Backend остановлен")
}
