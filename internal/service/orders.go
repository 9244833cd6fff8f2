package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjod/go_cart/storefront-service/internal/cache"
	"github.com/fjod/go_cart/storefront-service/internal/domain"
	r "github.com/fjod/go_cart/storefront-service/internal/repository"
	"golang.org/x/sync/singleflight"
)

type OrderService struct {
	repo   r.OrderRepository
	cache  cache.OrderCache
	logger *slog.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewOrderService(repo r.OrderRepository, c cache.OrderCache, logger *slog.Logger) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// ListOrders returns every order placed by userID. It never returns a nil slice.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		fillable := false
		var version int64
		if s.cache != nil {
			orders, err := s.cache.Get(ctx, userID)
			if err == nil {
				return orders, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				s.logger.Warn("order cache get failed", "user_id", userID, "error", err)
			}
			// the version must be read before the store query
			if version, err = s.cache.Version(ctx, userID); err == nil {
				fillable = true
			} else {
				s.logger.Warn("order cache version read failed", "user_id", userID, "error", err)
			}
		}

		orders, err := s.repo.ListOrdersByUserID(ctx, userID)
		if err != nil {
			return nil, newError(ErrPersistence, "failed to list orders", err)
		}

		if fillable {
			go s.fill(userID, version, orders)
		}

		return orders, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]*domain.Order), nil
}

func (s *OrderService) fill(userID string, version int64, orders []*domain.Order) {
	err := s.cache.Set(context.Background(), userID, version, orders)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrStaleVersion):
		s.logger.Debug("order cache fill skipped, list changed", "user_id", userID)
	default:
		s.logger.Warn("order cache set failed", "user_id", userID, "error", err)
	}
}
