package postgres

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
	"creator-monetization/internal/infra/metrics"
)

var _ repository.GiftRepository = (*giftRepoCacheDecorator)(nil)

const (
	defaultGiftCacheSize = 512
	defaultGiftCacheTTL  = 5 * time.Minute
	giftListKey          = "gifts:active"
)

type giftCacheEntry struct {
	gift     *model.Gift
	list     []*model.Gift
	storedAt time.Time
}

// giftRepoCacheDecorator keeps the gift catalog in an in-process LRU.
// Entries expire after ttl so price changes reach every instance.
type giftRepoCacheDecorator struct {
	inner repository.GiftRepository
	cache *lru.Cache[string, giftCacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

func NewGiftRepoCacheDecorator(inner repository.GiftRepository, size int, ttl time.Duration) (repository.GiftRepository, error) {
	if size <= 0 {
		size = defaultGiftCacheSize
	}
	if ttl <= 0 {
		ttl = defaultGiftCacheTTL
	}
	c, err := lru.New[string, giftCacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &giftRepoCacheDecorator{inner: inner, cache: c, ttl: ttl, now: time.Now}, nil
}

func (d *giftRepoCacheDecorator) fresh(key string) (giftCacheEntry, bool) {
	e, ok := d.cache.Get(key)
	if !ok {
		return giftCacheEntry{}, false
	}
	if d.now().Sub(e.storedAt) > d.ttl {
		d.cache.Remove(key)
		return giftCacheEntry{}, false
	}
	return e, true
}

func (d *giftRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Gift, error) {
	key := "gift:" + id
	if e, ok := d.fresh(key); ok {
		metrics.IncCacheRequest("gift", "hit")
		cp := *e.gift
		return &cp, nil
	}
	metrics.IncCacheRequest("gift", "miss")

	g, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	cp := *g
	d.cache.Add(key, giftCacheEntry{gift: &cp, storedAt: d.now()})
	return g, nil
}

func (d *giftRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Gift, error) {
	if e, ok := d.fresh(giftListKey); ok {
		metrics.IncCacheRequest("gift_list", "hit")
		return cloneGifts(e.list), nil
	}
	metrics.IncCacheRequest("gift_list", "miss")

	gifts, err := d.inner.ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	d.cache.Add(giftListKey, giftCacheEntry{list: cloneGifts(gifts), storedAt: d.now()})
	return gifts, nil
}

func cloneGifts(in []*model.Gift) []*model.Gift {
	out := make([]*model.Gift, 0, len(in))
	for _, g := range in {
		cp := *g
		out = append(out, &cp)
	}
	return out
}
