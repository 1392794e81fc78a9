package airport

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Simplici0/charterquote/internal/geo"
	"github.com/Simplici0/charterquote/internal/metrics"
)

// CacheConfig tunes CachedResolver.
type CacheConfig struct {
	TTL               time.Duration
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultCacheConfig keeps coordinates for a day and allows modest bursts.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:               24 * time.Hour,
		RequestsPerSecond: 5,
		BurstSize:         10,
	}
}

// CachedResolver wraps an upstream resolver with a TTL cache, request
// coalescing and a rate limit. Failures are never cached.
type CachedResolver struct {
	next    Resolver
	cache   *cache.Cache
	group   singleflight.Group
	limiter *rate.Limiter
	metrics *metrics.Registry
}

// NewCachedResolver wraps next. reg may be nil.
func NewCachedResolver(next Resolver, cfg CacheConfig, reg *metrics.Registry) *CachedResolver {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = def.BurstSize
	}
	return &CachedResolver{
		next:    next,
		cache:   cache.New(cfg.TTL, 2*cfg.TTL),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		metrics: reg,
	}
}

// Resolve implements Resolver.
func (c *CachedResolver) Resolve(ctx context.Context, code string) (geo.Point, error) {
	key, err := NormalizeCode(code)
	if err != nil {
		return geo.Point{}, err
	}

	if v, ok := c.cache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.AirportCacheHits.Inc()
		}
		return v.(geo.Point), nil
	}
	if c.metrics != nil {
		c.metrics.AirportCacheMisses.Inc()
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return geo.Point{}, &LookupError{Code: key, Err: err}
		}
		p, err := c.next.Resolve(ctx, key)
		c.observe(err)
		if err != nil {
			return geo.Point{}, err
		}
		c.cache.SetDefault(key, p)
		return p, nil
	})
	if err != nil {
		return geo.Point{}, err
	}
	return v.(geo.Point), nil
}

// Forget drops a cached code.
func (c *CachedResolver) Forget(code string) {
	if key, err := NormalizeCode(code); err == nil {
		c.cache.Delete(key)
	}
}

func (c *CachedResolver) observe(err error) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.AirportLookupsTotal.WithLabelValues(outcome).Inc()
}
