package repository

import (
	"context"
	"time"

	repo "storefront/internal/repository"

	"github.com/jellydator/ttlcache/v3"
)

// プロセス内のキー・バリューストア（CART_STORE=memory、テスト用）
type CartStateMemoryRepository struct {
	cache *ttlcache.Cache[string, []byte]
}

// DI
func NewCartStateMemoryRepository(ttl time.Duration) *CartStateMemoryRepository {
	c := ttlcache.New[string, []byte](
		ttlcache.WithTTL[string, []byte](ttl),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go c.Start()
	return &CartStateMemoryRepository{cache: c}
}

func (r *CartStateMemoryRepository) Load(ctx context.Context, key string) ([]byte, error) {
	item := r.cache.Get(key)
	if item == nil {
		return nil, repo.ErrNotFound
	}
	return append([]byte(nil), item.Value()...), nil
}

func (r *CartStateMemoryRepository) Save(ctx context.Context, key string, payload []byte) error {
	r.cache.Set(key, append([]byte(nil), payload...), ttlcache.DefaultTTL)
	return nil
}

func (r *CartStateMemoryRepository) Delete(ctx context.Context, key string) error {
	r.cache.Delete(key)
	return nil
}

// 期限切れ掃除のgoroutineを止める
func (r *CartStateMemoryRepository) Close() {
	r.cache.Stop()
}
