package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
)

// OrderCache holds a user's order history between finalizations.
//
// Fills are versioned: a caller reads Version before querying the order store and passes
// it to Set. Invalidate bumps the version, so a fill that raced an invalidation is
// rejected with ErrStaleVersion instead of restoring an outdated list.
type OrderCache interface {
	Get(ctx context.Context, userID string) ([]*domain.Order, error)
	Version(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, version int64, orders []*domain.Order) error
	Invalidate(ctx context.Context, userID string) error
}

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrStaleVersion = errors.New("order cache invalidated since read")
)
