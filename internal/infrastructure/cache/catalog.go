// Package cache caché de lectura en Redis para consultas al catálogo de insumos.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/insumos-ledger/internal/application/ledger"
	"github.com/jhoicas/insumos-ledger/pkg/logger"
)

var _ ledger.Catalog = (*CatalogCache)(nil)

const catalogKeyPrefix = "ledger:catalog:"

// Valores guardados en Redis. Se cachean también los negativos para no martillar el origen
// con insumos inexistentes.
const (
	cachedExists  = "1"
	cachedMissing = "0"
)

// CatalogCache envuelve un ledger.Catalog con caché en Redis. Las consultas concurrentes al
// mismo insumo se agrupan con singleflight. Si Redis falla se consulta el origen directo.
type CatalogCache struct {
	origin ledger.Catalog
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	log    *logger.Logger
}

// NewCatalogCache construye la caché. client nil deja pasar todas las consultas al origen.
func NewCatalogCache(origin ledger.Catalog, client *redis.Client, ttl time.Duration, log *logger.Logger) *CatalogCache {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogCache{origin: origin, client: client, ttl: ttl, log: log}
}

// Exists implementa ledger.Catalog.
func (c *CatalogCache) Exists(ctx context.Context, itemID string) (bool, error) {
	if c.client == nil {
		return c.origin.Exists(ctx, itemID)
	}
	key := catalogKeyPrefix + itemID

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return val == cachedExists, nil
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("item_id", itemID).Msg("caché de catálogo no disponible")
		return c.origin.Exists(ctx, itemID)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		ok, err := c.origin.Exists(ctx, itemID)
		if err != nil {
			return false, err
		}
		v := cachedMissing
		if ok {
			v = cachedExists
		}
		if err := c.client.Set(ctx, key, v, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("item_id", itemID).Msg("no se pudo cachear el insumo")
		}
		return ok, nil
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// Invalidate descarta la entrada de un insumo (alta o baja en el catálogo maestro).
func (c *CatalogCache) Invalidate(ctx context.Context, itemID string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, catalogKeyPrefix+itemID).Err()
}
