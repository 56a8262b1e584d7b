// manuscripts.go — обработчики пользовательских операций с манускриптами:
// публичный каталог, поиск, изображения, загрузка и правка владельцем.
package handlers

import (
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/manupedia/manupedia-backend/internal/api/errors"
	"github.com/manupedia/manupedia-backend/internal/api/middleware"
	"github.com/manupedia/manupedia-backend/internal/repository"
	"github.com/manupedia/manupedia-backend/internal/service"
)

// Лимит размера multipart-запроса (поля + изображение).
const maxUploadBytes = 32 << 20 // 32 MiB

// Лимит выборки последних манускриптов.
const (
	defaultRecentLimit = 6
	maxRecentLimit     = 50
)

// ListManuscripts — GET /api/manuscripts.
// Страница всех манускриптов, новые — первыми.
func (h *APIHandler) ListManuscripts(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)

	result, err := h.manuscripts.Search(r.Context(), repository.SearchParams{
		Limit:  size,
		Offset: page * size,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pagedResponse{
		Items:      toManuscriptResponses(result.Items),
		TotalCount: result.Total,
		Page:       page,
		Size:       size,
	})
}

// SearchManuscripts — GET /api/manuscripts/search.
// Фильтры: title, author, language — подстрока без учёта регистра;
// condition — точное совпадение с учётом регистра.
func (h *APIHandler) SearchManuscripts(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	q := r.URL.Query()

	params := repository.SearchParams{
		Limit:  size,
		Offset: page * size,
	}
	if v := q.Get("title"); v != "" {
		params.Title = &v
	}
	if v := q.Get("author"); v != "" {
		params.Author = &v
	}
	if v := q.Get("language"); v != "" {
		params.Language = &v
	}
	if v := q.Get("condition"); v != "" {
		params.Condition = &v
	}

	result, err := h.manuscripts.Search(r.Context(), params)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pagedResponse{
		Items:      toManuscriptResponses(result.Items),
		TotalCount: result.Total,
		Page:       page,
		Size:       size,
	})
}

// GetManuscript — GET /api/manuscripts/{id}.
func (h *APIHandler) GetManuscript(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректный id манускрипта")
		return
	}

	m, err := h.manuscripts.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toManuscriptResponse(m))
}

// GetManuscriptImage — GET /api/manuscripts/images/{filename}.
// Отдаёт содержимое изображения с MIME-типом по расширению.
func (h *APIHandler) GetManuscriptImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	// Только плоские имена файлов, без вложенных путей
	if filename == "" || filename != path.Base(filename) {
		apierrors.ValidationError(w, "Некорректное имя файла")
		return
	}

	data, contentType, err := h.manuscripts.GetImage(r.Context(), filename)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// RecentManuscripts — GET /api/manuscripts/recent.
func (h *APIHandler) RecentManuscripts(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l >= 1 {
			limit = l
			if limit > maxRecentLimit {
				limit = maxRecentLimit
			}
		}
	}

	items, err := h.manuscripts.Recent(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toManuscriptResponses(items))
}

// FeaturedManuscript — GET /api/manuscripts/featured.
func (h *APIHandler) FeaturedManuscript(w http.ResponseWriter, r *http.Request) {
	m, err := h.manuscripts.Featured(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toManuscriptResponse(m))
}

// statisticsResponse — JSON-представление статистики коллекции.
type statisticsResponse struct {
	TotalManuscripts int `json:"totalManuscripts"`
	RecentUpdates    int `json:"recentUpdates"`
	Contributors     int `json:"contributors"`
}

// GetStatistics — GET /api/manuscripts/statistics.
func (h *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.manuscripts.Statistics(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statisticsResponse{
		TotalManuscripts: stats.TotalManuscripts,
		RecentUpdates:    stats.RecentUpdates,
		Contributors:     stats.Contributors,
	})
}

// ListMyManuscripts — GET /api/manuscripts/my-manuscripts.
// Все манускрипты текущего пользователя без пагинации.
func (h *APIHandler) ListMyManuscripts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	items, err := h.manuscripts.ListByOwner(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toManuscriptResponses(items))
}

// CreateManuscript — POST /api/manuscripts.
// multipart/form-data: текстовые поля + опциональный part "image".
func (h *APIHandler) CreateManuscript(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	input, image, err := h.parseManuscriptForm(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	m, err := h.manuscripts.Create(r.Context(), userID, input, image)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toManuscriptResponse(m))
}

// UpdateManuscript — PUT /api/manuscripts/{id}.
// Полная перезапись полей. Новое изображение замещает старое,
// отсутствие part "image" оставляет текущее.
func (h *APIHandler) UpdateManuscript(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректный id манускрипта")
		return
	}

	input, image, err := h.parseManuscriptForm(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	m, err := h.manuscripts.Update(r.Context(), userID, id, input, image)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toManuscriptResponse(m))
}

// DeleteManuscript — DELETE /api/manuscripts/{id}.
func (h *APIHandler) DeleteManuscript(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректный id манускрипта")
		return
	}

	if err := h.manuscripts.Delete(r.Context(), userID, id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseManuscriptForm разбирает multipart-форму манускрипта.
// Возвращает текстовые поля и опциональное изображение.
func (h *APIHandler) parseManuscriptForm(r *http.Request) (service.ManuscriptInput, *service.ImageUpload, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return service.ManuscriptInput{}, nil, err
	}

	input := service.ManuscriptInput{
		Title:          r.FormValue("title"),
		Author:         r.FormValue("author"),
		DateCreated:    r.FormValue("dateCreated"),
		OriginLocation: r.FormValue("originLocation"),
		Language:       r.FormValue("language"),
		Material:       r.FormValue("material"),
		Dimensions:     r.FormValue("dimensions"),
		Condition:      r.FormValue("condition"),
		Description:    r.FormValue("description"),
		Content:        r.FormValue("content"),
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return input, nil, nil
		}
		return service.ManuscriptInput{}, nil, err
	}

	h.logger.Debug("Получено изображение",
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
	)

	return input, &service.ImageUpload{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}
