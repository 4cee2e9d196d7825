package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/linemk/commerce-core/internal/domain/models"
	"github.com/linemk/commerce-core/internal/lib/api/response"
	"github.com/linemk/commerce-core/internal/service"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toUserResponse(a *models.Account) UserResponse {
	return UserResponse{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

// RegisterHandler handles POST /auth/register.
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := decodeRequest(r, &req); err != nil {
			response.Error(w, logger, err)
			return
		}

		res, err := authService.Register(r.Context(), service.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Role:     req.Role,
		})
		if err != nil {
			response.Error(w, logger, err)
			return
		}

		response.JSON(w, logger, http.StatusCreated, AuthResponse{Token: res.Token, User: toUserResponse(res.Account)})
	}
}

// LoginHandler handles POST /auth/login.
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := decodeRequest(r, &req); err != nil {
			response.Error(w, logger, err)
			return
		}

		res, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			response.Error(w, logger, err)
			return
		}

		response.JSON(w, logger, http.StatusOK, AuthResponse{Token: res.Token, User: toUserResponse(res.Account)})
	}
}

// MeHandler handles GET /auth/me.
func MeHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MeHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		account, err := authService.Me(r.Context(), identity.AccountID)
		if err != nil {
			response.Error(w, logger, err)
			return
		}

		response.JSON(w, logger, http.StatusOK, toUserResponse(account))
	}
}
