package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	listTTL       = 15 * time.Minute
	maxListJitter = 5 // minutes
	// versionTTL outlives any cached list and any in-flight fill.
	versionTTL = 24 * time.Hour
)

// RedisCache stores each user's order list as JSON under orders:<userID> next to an
// invalidation counter under orders:<userID>:version.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, ttl: listTTL}
}

func (c *RedisCache) Get(ctx context.Context, userID string) ([]*domain.Order, error) {
	raw, err := c.client.Get(ctx, listKey(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("failed to read order list: %w", err)
	}

	orders := []*domain.Order{}
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode order list: %w", err)
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	return orders, nil
}

// Version returns the current invalidation counter; a user never invalidated is at 0.
func (c *RedisCache) Version(ctx context.Context, userID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read order cache version: %w", err)
	}
	return v, nil
}

// Set stores orders only while the version still equals version. The check and the write
// run under WATCH, so an Invalidate landing in between aborts the write.
func (c *RedisCache) Set(ctx context.Context, userID string, version int64, orders []*domain.Order) error {
	if orders == nil {
		orders = []*domain.Order{}
	}
	raw, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("failed to encode order list: %w", err)
	}
	ttl := c.ttl + time.Duration(rand.Intn(maxListJitter))*time.Minute

	vKey := versionKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return ErrStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, listKey(userID), raw, ttl)
			return nil
		})
		return err
	}, vKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleVersion), errors.Is(err, redis.TxFailedErr):
		return ErrStaleVersion
	default:
		return fmt.Errorf("failed to write order list: %w", err)
	}
}

// Invalidate drops the cached list and bumps the version in one transaction.
func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userID))
		pipe.Expire(ctx, versionKey(userID), versionTTL)
		pipe.Del(ctx, listKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate order list: %w", err)
	}
	return nil
}

func listKey(userID string) string {
	return "orders:" + userID
}

func versionKey(userID string) string {
	return "orders:" + userID + ":version"
}
