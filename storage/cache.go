package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"todoweb/domain"
)

type backend interface {
	CreateItem(ctx context.Context, ownerID string, fields domain.ItemFields) (domain.Item, error)
	GetItem(ctx context.Context, ownerID, id string) (domain.Item, error)
	UpdateItem(ctx context.Context, ownerID, id string, fields domain.ItemFields) (domain.Item, error)
	DeleteItem(ctx context.Context, ownerID, id string) error
	ListItems(ctx context.Context, ownerID string, order domain.Order) ([]domain.Item, error)
}

// Cache wraps a Storage instance with Redis-backed caching of per-owner item
// listings. Writes evict the owner's cached listings so reads never serve a
// stale list after the owner's own mutation.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) ListItems(ctx context.Context, ownerID string, order domain.Order) ([]domain.Item, error) {
	if items, ok := c.loadListFromCache(ctx, ownerID, order); ok {
		return items, nil
	}

	items, err := c.base.ListItems(ctx, ownerID, order)
	if err != nil {
		return nil, err
	}

	c.storeList(ctx, ownerID, order, items)
	return items, nil
}

func (c *Cache) CreateItem(ctx context.Context, ownerID string, fields domain.ItemFields) (domain.Item, error) {
	item, err := c.base.CreateItem(ctx, ownerID, fields)
	if err != nil {
		return domain.Item{}, err
	}
	c.evict(ctx, ownerID)
	return item, nil
}

func (c *Cache) UpdateItem(ctx context.Context, ownerID, id string, fields domain.ItemFields) (domain.Item, error) {
	item, err := c.base.UpdateItem(ctx, ownerID, id, fields)
	if err != nil {
		return domain.Item{}, err
	}
	c.evict(ctx, ownerID)
	return item, nil
}

func (c *Cache) DeleteItem(ctx context.Context, ownerID, id string) error {
	if err := c.base.DeleteItem(ctx, ownerID, id); err != nil {
		return err
	}
	c.evict(ctx, ownerID)
	return nil
}

func (c *Cache) loadListFromCache(ctx context.Context, ownerID string, order domain.Order) ([]domain.Item, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, listCacheKey(ownerID, order)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, listCacheKey(ownerID, order)).Err()
		}
		return nil, false
	}
	var items []domain.Item
	if err := json.Unmarshal(data, &items); err != nil {
		_ = c.redis.Del(ctx, listCacheKey(ownerID, order)).Err()
		return nil, false
	}
	// Ownership is not serialized; every item in the list belongs to the
	// key's owner.
	for i := range items {
		items[i].OwnerID = ownerID
	}
	return items, true
}

func (c *Cache) storeList(ctx context.Context, ownerID string, order domain.Order, items []domain.Item) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, listCacheKey(ownerID, order), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, ownerID string) {
	if c.redis == nil {
		return
	}
	keys := []string{
		listCacheKey(ownerID, domain.OrderCreated),
		listCacheKey(ownerID, domain.OrderPriority),
		listCacheKey(ownerID, domain.OrderDue),
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func listCacheKey(ownerID string, order domain.Order) string {
	return "items:" + ownerID + ":" + string(order)
}
