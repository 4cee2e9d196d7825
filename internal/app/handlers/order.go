package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/linemk/commerce-core/internal/domain/models"
	"github.com/linemk/commerce-core/internal/lib/api/response"
	"github.com/linemk/commerce-core/internal/lib/apperr"
	"github.com/linemk/commerce-core/internal/service"
)

type OrderItemRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1,max=2147483647"`
	Price     decimal.Decimal `json:"price"`
}

// CreateOrderRequest may carry a total; it is ignored and recomputed.
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"dive"`
}

// UpdateStatusRequest accepts the status under exactly these names.
type UpdateStatusRequest struct {
	Status      *string `json:"status"`
	OrderStatus *string `json:"orderStatus"`
	NewStatus   *string `json:"newStatus"`
}

// value picks the first alias present. Several aliases are allowed only when
// they agree.
func (r UpdateStatusRequest) value() (string, error) {
	var picked *string
	for _, v := range []*string{r.Status, r.OrderStatus, r.NewStatus} {
		if v == nil {
			continue
		}
		if picked == nil {
			picked = v
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(*picked), strings.TrimSpace(*v)) {
			return "", apperr.Validation("conflicting status values")
		}
	}
	if picked == nil || strings.TrimSpace(*picked) == "" {
		return "", apperr.Validation("status is required")
	}
	return *picked, nil
}

type MessageResponse struct {
	Message string `json:"message"`
}

// CreateOrderHandler handles POST /orders.
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		var req CreateOrderRequest
		if err := decodeRequest(r, &req); err != nil {
			response.Error(w, logger, err)
			return
		}

		items := make([]models.OrderItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, models.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
		}

		order, err := orderService.Create(r.Context(), identity.AccountID, items)
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusCreated, order)
	}
}

// CheckoutHandler handles POST /orders/checkout.
func CheckoutHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		order, err := orderService.Checkout(r.Context(), identity.AccountID)
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusCreated, order)
	}
}

// GetOrderHandler handles GET /orders/{id}. Owners and admins only.
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		order, err := orderService.Get(r.Context(), identity, chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, order)
	}
}

// MyOrdersHandler handles GET /orders/my.
func MyOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MyOrdersHandler"
		logger := log.With(slog.String("op", op))

		identity, ok := identityFrom(w, r, logger)
		if !ok {
			return
		}

		orders, err := orderService.ListMine(r.Context(), identity.AccountID)
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, orders)
	}
}

// ListOrdersHandler handles GET /orders (admin).
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		orders, err := orderService.ListAll(r.Context())
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, orders)
	}
}

// UpdateOrderStatusHandler handles PUT /orders/{id}/status (admin).
func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		var req UpdateStatusRequest
		if err := decodeRequest(r, &req, decodeOpts{strict: true}); err != nil {
			response.Error(w, logger, err)
			return
		}
		status, err := req.value()
		if err != nil {
			response.Error(w, logger, err)
			return
		}

		order, err := orderService.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
		if err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, order)
	}
}

// DeleteOrderHandler handles DELETE /orders/{id} (admin).
func DeleteOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteOrderHandler"
		logger := log.With(slog.String("op", op))

		if err := orderService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			response.Error(w, logger, err)
			return
		}
		response.JSON(w, logger, http.StatusOK, MessageResponse{Message: "order deleted"})
	}
}
