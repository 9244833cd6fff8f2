package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/service"
)

type CheckoutService interface {
	InitiateCheckout(ctx context.Context, cart domain.Cart, user domain.Purchaser) (*service.CheckoutResult, error)
	FinalizeCheckout(ctx context.Context, sessionID, signature string) (*domain.Order, error)
}

type CheckoutHandler struct {
	checkout           CheckoutService
	timeout            time.Duration
	successRedirectURL string
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration, successRedirectURL string) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:           checkout,
		timeout:            timeout,
		successRedirectURL: successRedirectURL,
	}
}

type CheckoutRequestDTO struct {
	Cart domain.Cart `json:"cart"`
}

type CheckoutResponseDTO struct {
	SessionID string      `json:"sessionId"`
	TotalSum  json.Number `json:"totalSum"`
	URL       string      `json:"url,omitempty"`
}

// POST /api/users/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Please authenticate")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := h.checkout.InitiateCheckout(ctx, req.Cart, user.Purchaser())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponseDTO{
		SessionID: result.PaymentSessionID,
		TotalSum:  json.Number(result.Total.StringFixed(2)),
		URL:       result.PaymentURL,
	})
}

// GET /api/users/checkout/success?sessionId=&sig=
func (h *CheckoutHandler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	if _, err := h.checkout.FinalizeCheckout(ctx, q.Get("sessionId"), q.Get("sig")); err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, h.successRedirectURL, http.StatusSeeOther)
}
