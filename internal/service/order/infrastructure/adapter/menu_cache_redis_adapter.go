// internal/service/order/infrastructure/adapter/menu_cache_redis_adapter.go
package adapter

import (
	"context"
	"time"

	"dispatch/internal/pkg/logger"
	"dispatch/internal/pkg/redis"
	"dispatch/internal/service/order/domain/port"
)

// CachedCatalog 用 Redis 给 GetMenu 加一层短 TTL 缓存。
// 菜单只作为创建订单前的参考读取，预检本身允许过期数据，
// 真正的库存判定仍由目录服务在 Reserve 时加锁完成。
// Reserve / Release 直接透传，绝不缓存。
type CachedCatalog struct {
	inner port.CatalogService
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedCatalog(inner port.CatalogService, cache *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachedCatalog) GetMenu(ctx context.Context, restaurantID string) ([]port.MenuStock, error) {
	key := "menu:" + restaurantID

	var cached []port.MenuStock
	hit, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("restaurant_id", restaurantID).Msg("menu cache read failed, falling through")
	} else if hit {
		return cached, nil
	}

	menu, err := c.inner.GetMenu(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, menu, c.ttl); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("restaurant_id", restaurantID).Msg("menu cache write failed")
	}
	return menu, nil
}

func (c *CachedCatalog) Reserve(ctx context.Context, restaurantID, itemID string, quantity int) (*port.ReservedItem, error) {
	return c.inner.Reserve(ctx, restaurantID, itemID, quantity)
}

func (c *CachedCatalog) Release(ctx context.Context, restaurantID, itemID string, quantity int) error {
	return c.inner.Release(ctx, restaurantID, itemID, quantity)
}
