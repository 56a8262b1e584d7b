// users.go — обработчик профиля текущего пользователя.
package handlers

import (
	"net/http"
	"time"

	"github.com/manupedia/manupedia-backend/internal/api/middleware"
)

// userResponse — JSON-представление профиля пользователя.
type userResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

// GetCurrentUser — GET /api/users/me.
// Возвращает профиль аутентифицированного пользователя из БД.
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	u, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	})
}
