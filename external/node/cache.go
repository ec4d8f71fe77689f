package node

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
	"sync"
	"time"
)

type AccountDataProvider interface {
	GetRichList(ctx context.Context) ([]entities.RichListEntry, error)
	GetEpochScore(ctx context.Context) ([]entities.ValidatorScore, error)
	GetBalances(ctx context.Context, address string) ([]entities.Balance, error)
}

const (
	richListKey = "richlist"
	scoresKey   = "scores"
)

// Cache keeps slow changing account data for a while. Failed calls are not cached.
type Cache struct {
	provider      AccountDataProvider
	richListCache *ttlcache.Cache[string, []entities.RichListEntry]
	richListLock  sync.Mutex
	scoresCache   *ttlcache.Cache[string, []entities.ValidatorScore]
	scoresLock    sync.Mutex
	balanceCache  *ttlcache.Cache[string, []entities.Balance]
	balanceLock   sync.Mutex
}

func NewCache(provider AccountDataProvider, ttl time.Duration, balanceTtl time.Duration) *Cache {
	return &Cache{
		provider: provider,
		richListCache: ttlcache.New[string, []entities.RichListEntry](
			ttlcache.WithTTL[string, []entities.RichListEntry](ttl),
			ttlcache.WithDisableTouchOnHit[string, []entities.RichListEntry](),
		),
		scoresCache: ttlcache.New[string, []entities.ValidatorScore](
			ttlcache.WithTTL[string, []entities.ValidatorScore](ttl),
			ttlcache.WithDisableTouchOnHit[string, []entities.ValidatorScore](),
		),
		balanceCache: ttlcache.New[string, []entities.Balance](
			ttlcache.WithTTL[string, []entities.Balance](balanceTtl),
			ttlcache.WithDisableTouchOnHit[string, []entities.Balance](),
			ttlcache.WithCapacity[string, []entities.Balance](1000),
		),
	}
}

// Start runs the expiration loops until Stop is called.
func (c *Cache) Start() {
	go c.richListCache.Start()
	go c.scoresCache.Start()
	go c.balanceCache.Start()
}

func (c *Cache) Stop() {
	c.richListCache.Stop()
	c.scoresCache.Stop()
	c.balanceCache.Stop()
}

func (c *Cache) GetRichList(ctx context.Context) ([]entities.RichListEntry, error) {
	c.richListLock.Lock() // one request at a time fills the cache
	defer c.richListLock.Unlock()

	item := c.richListCache.Get(richListKey)
	if item != nil {
		return item.Value(), nil
	}
	richList, err := c.provider.GetRichList(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting rich list")
	}
	c.richListCache.Set(richListKey, richList, ttlcache.DefaultTTL)
	return richList, nil
}

func (c *Cache) GetEpochScore(ctx context.Context) ([]entities.ValidatorScore, error) {
	c.scoresLock.Lock()
	defer c.scoresLock.Unlock()

	item := c.scoresCache.Get(scoresKey)
	if item != nil {
		return item.Value(), nil
	}
	scores, err := c.provider.GetEpochScore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting epoch score")
	}
	c.scoresCache.Set(scoresKey, scores, ttlcache.DefaultTTL)
	return scores, nil
}

func (c *Cache) GetBalances(ctx context.Context, address string) ([]entities.Balance, error) {
	c.balanceLock.Lock()
	defer c.balanceLock.Unlock()

	item := c.balanceCache.Get(address)
	if item != nil {
		return item.Value(), nil
	}
	balances, err := c.provider.GetBalances(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "getting balances of [%s]", address)
	}
	c.balanceCache.Set(address, balances, ttlcache.DefaultTTL)
	return balances, nil
}
