// Пакет server — HTTP-сервер Manupedia Backend с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/manupedia/manupedia-backend/internal/api/handlers"
	"github.com/manupedia/manupedia-backend/internal/api/middleware"
	"github.com/manupedia/manupedia-backend/internal/config"
)

// Server — HTTP-сервер Manupedia Backend.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
//
// Маршруты в трёх группах:
//   - публичные: каталог, поиск, изображения, health, metrics;
//   - аутентифицированные: загрузка, правка и удаление своих манускриптов;
//   - admin: модерация за JWT + RequireAdmin.
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	router := chi.NewRouter()

	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Служебные endpoints
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	// Публичное чтение каталога
	router.Group(func(r chi.Router) {
		r.Get("/api/manuscripts", handler.ListManuscripts)
		r.Get("/api/manuscripts/search", handler.SearchManuscripts)
		r.Get("/api/manuscripts/recent", handler.RecentManuscripts)
		r.Get("/api/manuscripts/featured", handler.FeaturedManuscript)
		r.Get("/api/manuscripts/statistics", handler.GetStatistics)
		r.Get("/api/manuscripts/images/{filename}", handler.GetManuscriptImage)
		r.Get("/api/manuscripts/{id}", handler.GetManuscript)
	})

	// Операции владельца — требуется JWT
	router.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware())
		r.Get("/api/users/me", handler.GetCurrentUser)
		r.Get("/api/manuscripts/my-manuscripts", handler.ListMyManuscripts)
		r.Post("/api/manuscripts", handler.CreateManuscript)
		r.Put("/api/manuscripts/{id}", handler.UpdateManuscript)
		r.Delete("/api/manuscripts/{id}", handler.DeleteManuscript)
	})

	// Модерация — JWT + роль admin
	router.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware())
		r.Use(middleware.RequireAdmin())
		r.Get("/api/admin/manuscripts", handler.AdminListManuscripts)
		r.Put("/api/admin/manuscripts/{id}/status", handler.AdminSetStatus)
		r.Put("/api/admin/manuscripts/{id}/featured", handler.AdminToggleFeatured)
		r.Delete("/api/admin/manuscripts/{id}", handler.AdminDeleteManuscript)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
