package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linemk/commerce-core/internal/lib/api/response"
	"github.com/linemk/commerce-core/internal/service"
)

type AddCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=2147483647"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=2147483647"`
}

// GetCartHandler handles GET /carts.
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.Get(r.Context(), identity.AccountID)
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, cart)
	}
}

// AddCartItemHandler handles POST /carts/items.
func AddCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItemHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		var req AddCartItemRequest
		if err := decodeRequest(r, &req); err != nil {
			response.Error(w, logger, err)
			return
		}

		cart, err := cartService.Add(r.Context(), identity.AccountID, req.ProductID, req.Quantity)
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, cart)
	}
}

// UpdateCartItemHandler handles PUT /carts/items/{productId}.
func UpdateCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartItemHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		var req UpdateCartItemRequest
		if err := decodeRequest(r, &req); err != nil {
			response.Error(w, logger, err)
			return
		}

		cart, err := cartService.SetQuantity(r.Context(), identity.AccountID, chi.URLParam(r, "productId"), req.Quantity)
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, cart)
	}
}

// RemoveCartItemHandler handles DELETE /carts/items/{productId}.
func RemoveCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.Remove(r.Context(), identity.AccountID, chi.URLParam(r, "productId"))
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, cart)
	}
}

// ClearCartHandler handles DELETE /carts.
func ClearCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.Clear(r.Context(), identity.AccountID)
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, cart)
	}
}

// ListCartsHandler handles GET /carts/all (admin).
func ListCartsHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListCartsHandler"
		logger := log.With(slog.String("op", op))

		carts, err := cartService.ListAll(r.Context())
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, carts)
	}
}
