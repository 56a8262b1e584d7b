// admin.go — обработчики операций модерации (роль admin).
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/manupedia/manupedia-backend/internal/api/errors"
	"github.com/manupedia/manupedia-backend/internal/repository"
)

// AdminListManuscripts — GET /api/admin/manuscripts.
// Все записи любых владельцев, недавно изменённые — первыми.
// Опциональный фильтр ?status=PENDING|APPROVED|REJECTED.
func (h *APIHandler) AdminListManuscripts(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)

	params := repository.AdminListParams{
		Limit:  size,
		Offset: page * size,
	}
	if v := r.URL.Query().Get("status"); v != "" {
		params.Status = &v
	}

	result, err := h.moderation.List(r.Context(), params)
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

// statusRequest — тело запроса смены статуса.
type statusRequest struct {
	Status string `json:"status"`
}

// AdminSetStatus — PUT /api/admin/manuscripts/{id}/status.
// Токен статуса валидируется строго с учётом регистра.
func (h *APIHandler) AdminSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректный id манускрипта")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: ожидается {\"status\": ...}")
		return
	}

	m, err := h.moderation.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toManuscriptResponse(m))
}

// AdminToggleFeatured — PUT /api/admin/manuscripts/{id}/featured.
// Переключает флаг без других побочных эффектов.
func (h *APIHandler) AdminToggleFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректный id манускрипта")
		return
	}

	m, err := h.moderation.ToggleFeatured(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toManuscriptResponse(m))
}

// AdminDeleteManuscript — DELETE /api/admin/manuscripts/{id}.
// Удаляет любой манускрипт без проверки владения.
func (h *APIHandler) AdminDeleteManuscript(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректный id манускрипта")
		return
	}

	if err := h.moderation.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
