// metrics.go — Prometheus HTTP метрики Manupedia Backend.
// Регистрирует метрики: mp_http_requests_total, mp_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики Manupedia Backend
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mp_http_requests_total",
			Help: "Общее количество HTTP-запросов к Manupedia Backend",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mp_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Manupedia Backend в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем id и имена файлов на плейсхолдеры)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет динамические сегменты пути на плейсхолдеры
// для предотвращения взрывного роста кардинальности метрик.
// /api/manuscripts/123 → /api/manuscripts/{id}
// /api/manuscripts/images/a1b2.png → /api/manuscripts/images/{filename}
// /api/admin/manuscripts/123/status → /api/admin/manuscripts/{id}/status
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/manuscripts", "/api/manuscripts/search",
		"/api/manuscripts/my-manuscripts", "/api/manuscripts/recent",
		"/api/manuscripts/featured", "/api/manuscripts/statistics",
		"/api/admin/manuscripts", "/api/users/me":
		return path
	}

	const imagesPrefix = "/api/manuscripts/images/"
	if strings.HasPrefix(path, imagesPrefix) {
		return imagesPrefix + "{filename}"
	}

	const adminPrefix = "/api/admin/manuscripts/"
	if rest, ok := strings.CutPrefix(path, adminPrefix); ok {
		id, suffix, _ := strings.Cut(rest, "/")
		if isNumeric(id) {
			switch suffix {
			case "status":
				return adminPrefix + "{id}/status"
			case "featured":
				return adminPrefix + "{id}/featured"
			default:
				return adminPrefix + "{id}"
			}
		}
		return path
	}

	const manuscriptsPrefix = "/api/manuscripts/"
	if rest, ok := strings.CutPrefix(path, manuscriptsPrefix); ok {
		if isNumeric(rest) {
			return manuscriptsPrefix + "{id}"
		}
	}

	return path
}

// isNumeric сообщает, состоит ли сегмент только из цифр.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
