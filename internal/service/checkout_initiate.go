package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/payment"
	"github.com/shopspring/decimal"
)

// CheckoutResult is what the client needs to open the hosted payment page.
type CheckoutResult struct {
	// PaymentSessionID is the processor's reference, not the internal session id.
	PaymentSessionID  string
	PaymentURL        string
	CheckoutSessionID string
	Total             decimal.Decimal
}

// InitiateCheckout persists a pending session for cart and opens a payment session for it.
// The pending session is stored before the processor is contacted; if the processor call
// fails it is left to expire.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, cart domain.Cart, user domain.Purchaser) (*CheckoutResult, error) {
	if err := cart.Validate(); err != nil {
		return nil, newError(ErrValidation, err.Error(), err)
	}

	session := domain.NewSession(cart, user, s.now())
	if err := s.sessions.InsertSession(ctx, session); err != nil {
		s.logger.Error("failed to store checkout session",
			"session_id", session.SessionID,
			"error", err)
		return nil, newError(ErrPersistence, "failed to store checkout session", err)
	}

	successURL, err := s.successURL(session.SessionID)
	if err != nil {
		return nil, newError(ErrPersistence, "failed to build callback url", err)
	}

	lineItems := make([]payment.LineItem, 0, len(session.Cart))
	for _, item := range session.Cart {
		lineItems = append(lineItems, payment.LineItem{
			Name:       item.Name,
			UnitAmount: item.Price,
			Quantity:   item.Amount,
		})
	}

	ps, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		Currency:   s.cfg.Currency,
		LineItems:  lineItems,
		SuccessURL: successURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		s.logger.Error("payment session creation failed",
			"session_id", session.SessionID,
			"error", err)
		return nil, newError(ErrExternalService, "payment session creation failed", err)
	}

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	s.logger.Info("checkout session created",
		"session_id", session.SessionID,
		"payment_session_id", ps.ID,
		"user_id", user.UserID,
		"total", session.Total.StringFixed(2),
		"expires_at", session.ExpiresAt())

	return &CheckoutResult{
		PaymentSessionID:  ps.ID,
		PaymentURL:        ps.URL,
		CheckoutSessionID: session.SessionID,
		Total:             session.Total,
	}, nil
}

func (s *CheckoutService) successURL(sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(s.cfg.PublicBaseURL, "/") + successCallbackPath)
	if err != nil {
		return "", fmt.Errorf("invalid public base url: %w", err)
	}

	q := url.Values{}
	q.Set("sessionId", sessionID)
	q.Set("sig", s.signer.Sign(sessionID))
	u.RawQuery = q.Encode()

	return u.String(), nil
}
