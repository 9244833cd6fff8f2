package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
)

type OrderLister interface {
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderLister
	timeout time.Duration
}

func NewOrdersHandler(orders OrderLister, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrderResponseDTO struct {
	ID        string                `json:"id"`
	SessionID string                `json:"sessionId"`
	User      domain.Purchaser      `json:"user"`
	Products  []domain.OrderProduct `json:"products"`
	Total     json.Number           `json:"total"`
	CreatedAt time.Time             `json:"createdAt"`
}

type OrdersResponseDTO struct {
	Order []OrderResponseDTO `json:"order"`
}

// GET /api/users/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Please authenticate")
		return
	}

	orders, err := h.orders.ListOrders(ctx, user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}

	respondJSON(w, http.StatusOK, OrdersResponseDTO{Order: dtos})
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	products := o.Products
	if products == nil {
		products = make([]domain.OrderProduct, 0)
	}
	return OrderResponseDTO{
		ID:        o.ID,
		SessionID: o.SessionID,
		User:      o.User,
		Products:  products,
		Total:     json.Number(o.Total.StringFixed(2)),
		CreatedAt: o.CreatedAt,
	}
}
