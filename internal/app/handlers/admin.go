package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linemk/commerce-core/internal/lib/api/response"
	"github.com/linemk/commerce-core/internal/service"
)

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// UpdateUserRoleHandler handles PATCH /admin/users/{id}/role (admin).
func UpdateUserRoleHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateUserRoleHandler"
		logger := log.With(slog.String("op", op))

		var req UpdateRoleRequest
		if err := decodeRequest(r, &req); err != nil {
			response.Error(w, logger, err)
			return
		}

		account, err := authService.UpdateRole(r.Context(), chi.URLParam(r, "id"), req.Role)
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, toUserResponse(account))
	}
}
