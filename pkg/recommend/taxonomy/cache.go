package taxonomy

import (
	"context"
	"time"

	"ai-budtender-be/internal/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const module = "TAXONOMY"

type Config struct {
	TTL         time.Duration
	LoadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		TTL:         30 * time.Minute,
		LoadTimeout: 3 * time.Second,
	}
}

// Cache serves taxonomies per language. Concurrent misses for one language share a single load.
// A last-good copy is kept without expiry and served when a reload fails.
type Cache struct {
	loader Loader
	fresh  *gocache.Cache
	stale  *gocache.Cache
	group  singleflight.Group
	cfg    Config
	log    logger.ILogger
}

func NewCache(loader Loader, cfg Config, log logger.ILogger) *Cache {
	return &Cache{
		loader: loader,
		fresh:  gocache.New(cfg.TTL, cfg.TTL),
		stale:  gocache.New(gocache.NoExpiration, 0),
		cfg:    cfg,
		log:    log,
	}
}

// Get never fails: a load error yields the last-good or an empty taxonomy.
func (c *Cache) Get(ctx context.Context, language string) *Taxonomy {
	if x, ok := c.fresh.Get(language); ok {
		return x.(*Taxonomy)
	}

	v, err, shared := c.group.Do(language, func() (interface{}, error) {
		if x, ok := c.fresh.Get(language); ok {
			return x, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.LoadTimeout)
		defer cancel()

		t, err := c.loader.LoadTaxonomy(loadCtx, language)
		if err != nil {
			return nil, err
		}
		t.LoadedAt = time.Now()
		c.fresh.SetDefault(language, t)
		c.stale.Set(language, t, gocache.NoExpiration)
		return t, nil
	})
	if err == nil {
		c.log.Debug(module, "Taxonomy loaded", map[string]interface{}{"language": language, "shared": shared})
		return v.(*Taxonomy)
	}

	c.log.Warn(module, "Taxonomy load failed", map[string]interface{}{"language": language, "error": err.Error()})
	if x, ok := c.stale.Get(language); ok {
		return x.(*Taxonomy)
	}
	return Empty(language)
}

// Invalidate drops fresh entries so the next Get reloads. Last-good copies are kept.
func (c *Cache) Invalidate() {
	c.fresh.Flush()
	c.log.Info(module, "Taxonomy cache invalidated", nil)
}
