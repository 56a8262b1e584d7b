// handler.go — основной обработчик API Manupedia Backend.
// Объединяет health, пользовательские и admin-обработчики,
// содержит общие помощники: JSON-ответы, пагинация, маппинг ошибок.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/manupedia/manupedia-backend/internal/api/errors"
	"github.com/manupedia/manupedia-backend/internal/domain/model"
	"github.com/manupedia/manupedia-backend/internal/service"
)

// Параметры пагинации по умолчанию.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// imageURLPrefix — префикс публичных URL изображений.
const imageURLPrefix = "/api/manuscripts/images/"

// APIHandler — основной обработчик API.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health      *HealthHandler
	manuscripts *service.ManuscriptService
	moderation  *service.ModerationService
	users       *service.UserService
	logger      *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	manuscripts *service.ManuscriptService,
	moderation *service.ModerationService,
	users *service.UserService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:      health,
		manuscripts: manuscripts,
		moderation:  moderation,
		users:       users,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Представление манускрипта в API ---

// manuscriptResponse — JSON-представление манускрипта.
type manuscriptResponse struct {
	ID                    int64   `json:"id"`
	Title                 string  `json:"title"`
	Author                string  `json:"author"`
	DateCreated           string  `json:"dateCreated"`
	OriginLocation        string  `json:"originLocation"`
	Language              string  `json:"language"`
	Material              string  `json:"material"`
	Dimensions            string  `json:"dimensions"`
	Condition             string  `json:"condition"`
	Description           string  `json:"description"`
	Content               string  `json:"content"`
	ImageURL              *string `json:"imageUrl"`
	UploadedByDisplayName string  `json:"uploadedByDisplayName"`
	Status                string  `json:"status"`
	Featured              bool    `json:"featured"`
	UploadDate            string  `json:"uploadDate"`
	LastModified          string  `json:"lastModified"`
}

// pagedResponse — страница результатов с общим количеством.
type pagedResponse struct {
	Items      []*manuscriptResponse `json:"items"`
	TotalCount int                   `json:"totalCount"`
	Page       int                   `json:"page"`
	Size       int                   `json:"size"`
}

// toManuscriptResponse конвертирует модель в JSON-представление.
// Имя файла изображения наружу не отдаётся — только публичный URL.
func toManuscriptResponse(m *model.Manuscript) *manuscriptResponse {
	resp := &manuscriptResponse{
		ID:                    m.ID,
		Title:                 m.Title,
		Author:                m.Author,
		DateCreated:           m.DateCreated,
		OriginLocation:        m.OriginLocation,
		Language:              m.Language,
		Material:              m.Material,
		Dimensions:            m.Dimensions,
		Condition:             m.Condition,
		Description:           m.Description,
		Content:               m.Content,
		UploadedByDisplayName: m.UploadedByName,
		Status:                m.Status,
		Featured:              m.Featured,
		UploadDate:            m.UploadDate.UTC().Format(time.RFC3339),
		LastModified:          m.LastModified.UTC().Format(time.RFC3339),
	}
	if m.ImageFilename != nil {
		url := imageURLPrefix + *m.ImageFilename
		resp.ImageURL = &url
	}
	return resp
}

// toManuscriptResponses конвертирует срез моделей.
func toManuscriptResponses(items []*model.Manuscript) []*manuscriptResponse {
	result := make([]*manuscriptResponse, 0, len(items))
	for _, m := range items {
		result = append(result, toManuscriptResponse(m))
	}
	return result
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// parsePagination разбирает query-параметры page и size.
// Нумерация страниц с нуля. Возвращает (page, size).
func parsePagination(r *http.Request) (page, size int) {
	page = 0
	size = defaultPageSize

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p >= 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if s, err := strconv.Atoi(v); err == nil && s >= 1 {
			size = s
			if size > maxPageSize {
				size = maxPageSize
			}
		}
	}

	return page, size
}

// parseIDParam разбирает числовой path-параметр id.
func parseIDParam(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

// writeServiceError маппит ошибки сервисного слоя на HTTP-ответы.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка обработки запроса",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
