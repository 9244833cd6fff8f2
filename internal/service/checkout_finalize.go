package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	r "github.com/fjod/go_cart/storefront-service/internal/repository"
)

// FinalizeCheckout turns the pending session into an order and removes the session.
// Of several concurrent calls for one session exactly one succeeds; the rest get ErrNotFound.
func (s *CheckoutService) FinalizeCheckout(ctx context.Context, sessionID, signature string) (*domain.Order, error) {
	if sessionID == "" {
		return nil, newError(ErrValidation, "Missing session ID", nil)
	}
	if err := s.signer.Verify(sessionID, signature); err != nil {
		return nil, newError(ErrValidation, "Invalid session signature", err)
	}

	session, err := s.sessions.FindSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, r.ErrSessionNotFound) {
			return nil, newError(ErrNotFound, "Session data not found", err)
		}
		s.logger.Error("failed to load checkout session", "session_id", sessionID, "error", err)
		return nil, newError(ErrPersistence, "failed to load checkout session", err)
	}

	order := domain.NewOrderFromSession(session, s.now())
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if !errors.Is(err, r.ErrDuplicateSession) {
			s.logger.Error("failed to store order", "session_id", sessionID, "error", err)
			return nil, newError(ErrPersistence, "failed to store order", err)
		}
		// an order for this session already exists; the session delete below decides who wins
		s.logger.Warn("order already stored for session", "session_id", sessionID)
		if s.metrics != nil {
			s.metrics.FinalizeConflict.Inc()
		}
		order = s.storedOrder(ctx, order)
	}

	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		if errors.Is(err, r.ErrSessionNotFound) {
			// another finalizer or the TTL monitor removed the record after we read it
			s.logger.Warn("checkout session removed during finalize", "session_id", sessionID)
			if s.metrics != nil {
				s.metrics.FinalizeConflict.Inc()
			}
			return nil, newError(ErrNotFound, "Session data not found", err)
		}
		s.logger.Error("failed to delete checkout session", "session_id", sessionID, "error", err)
		return nil, newError(ErrPersistence, "failed to delete checkout session", err)
	}

	if s.metrics != nil {
		s.metrics.OrdersFinalized.Inc()
	}
	s.invalidateOrders(order.User.UserID)
	if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.Error("failed to publish order placed event", "order_id", order.ID, "error", err)
	}

	s.logger.Info("checkout finalized",
		"session_id", sessionID,
		"order_id", order.ID,
		"user_id", order.User.UserID)
	return order, nil
}

// storedOrder returns the order already persisted for the session, falling back to
// the freshly built one when it cannot be read.
func (s *CheckoutService) storedOrder(ctx context.Context, fallback *domain.Order) *domain.Order {
	existing, err := s.orders.GetOrderBySessionID(ctx, fallback.SessionID)
	if err != nil {
		s.logger.Warn("failed to load existing order", "session_id", fallback.SessionID, "error", err)
		return fallback
	}
	return existing
}

func (s *CheckoutService) invalidateOrders(userID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("order cache invalidate failed", "user_id", userID, "error", err)
	}
}
