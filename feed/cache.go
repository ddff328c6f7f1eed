package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/feedkit/core"
)

// DefaultCacheTTL 是结果缓存的默认生存期。
const DefaultCacheTTL = 5 * time.Minute

// Cache 是信息流结果缓存：按 (userID, page, pageSize) 记忆整页结果，
// 固定 TTL 过期，标记已读时整体失效该用户的全部缓存页。
//
// 失效通过每用户的 key 索引实现：Set 时把页 key 追加进
// {prefix}:{userID}:keys，InvalidateUser 读索引逐条删除。
// 并发 Set 之间的索引追加没有加锁，竞争时个别 key 可能漏记，
// 漏记的页最多保留到自然过期（at-most-stale，与整体并发模型一致）。
type Cache struct {
	store  core.Store
	ttl    time.Duration
	prefix string
}

// NewCache 构建结果缓存；ttl <= 0 时使用 DefaultCacheTTL。
func NewCache(store core.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{store: store, ttl: ttl, prefix: "user_feed"}
}

func (c *Cache) key(userID int64, page, pageSize int) string {
	return fmt.Sprintf("%s:%d:page:%d:size:%d", c.prefix, userID, page, pageSize)
}

func (c *Cache) indexKey(userID int64) string {
	return fmt.Sprintf("%s:%d:keys", c.prefix, userID)
}

func (c *Cache) ttlSeconds() int {
	return int(c.ttl / time.Second)
}

// Get 读取缓存页。未命中返回 (nil, false, nil)；后端故障照实上抛。
func (c *Cache) Get(ctx context.Context, userID int64, page, pageSize int) (*core.FeedPage, bool, error) {
	data, err := c.store.Get(ctx, c.key(userID, page, pageSize))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("feed cache get: %w", err)
	}

	var fp core.FeedPage
	if err := json.Unmarshal(data, &fp); err != nil {
		// 损坏的缓存值按未命中处理，重算后覆盖
		return nil, false, nil
	}
	return &fp, true, nil
}

// Set 写入缓存页，并把页 key 登记进该用户的 key 索引。
// 索引的 TTL 与页一致：索引过期时其登记的页也已全部过期。
func (c *Cache) Set(ctx context.Context, userID int64, page, pageSize int, fp *core.FeedPage) error {
	data, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("feed cache marshal: %w", err)
	}

	key := c.key(userID, page, pageSize)
	if err := c.store.Set(ctx, key, data, c.ttlSeconds()); err != nil {
		return fmt.Errorf("feed cache set: %w", err)
	}
	return c.indexAdd(ctx, userID, key)
}

// InvalidateUser 删除某个用户全部已登记的缓存页。标记已读后调用：
// 任何 (page, pageSize) 组合的缓存页此后都不会再被命中。
func (c *Cache) InvalidateUser(ctx context.Context, userID int64) error {
	keys, err := c.indexGet(ctx, userID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			return fmt.Errorf("feed cache invalidate: %w", err)
		}
	}
	return c.store.Delete(ctx, c.indexKey(userID))
}

func (c *Cache) indexGet(ctx context.Context, userID int64) ([]string, error) {
	data, err := c.store.Get(ctx, c.indexKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("feed cache index get: %w", err)
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, nil
	}
	return keys, nil
}

func (c *Cache) indexAdd(ctx context.Context, userID int64, key string) error {
	keys, err := c.indexGet(ctx, userID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	keys = append(keys, key)

	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("feed cache index marshal: %w", err)
	}
	if err := c.store.Set(ctx, c.indexKey(userID), data, c.ttlSeconds()); err != nil {
		return fmt.Errorf("feed cache index set: %w", err)
	}
	return nil
}
