package cache

import (
	"context"
	"math/rand"
	"time"

	"github.com/mivine/essentials-backend-go/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
)

// versionTTL outlives any cached cart so a version never resets while a
// reader still holds it.
const versionTTL = 24 * time.Hour

// setIfCurrent stores the cart only when the owner's version key still holds
// the version the caller read before loading the cart.
var setIfCurrent = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

func NewRedisCache(client redis.Cmdable, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

// RedisCache stores carts as BSON documents so ids and timestamps survive the
// round trip unchanged.
type RedisCache struct {
	client  redis.Cmdable
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get failed")
	}

	var cart models.Cart
	if err := bson.Unmarshal(data, &cart); err != nil {
		return nil, errors.Wrap(err, "unmarshal cart failed")
	}
	return &cart, nil
}

func (r *RedisCache) Version(ctx context.Context, owner models.CartOwner) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(owner)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "redis version read failed")
	}
	return v, nil
}

func (r *RedisCache) Set(ctx context.Context, owner models.CartOwner, cart *models.Cart, version int64) error {
	data, err := bson.Marshal(cart)
	if err != nil {
		return errors.Wrap(err, "marshal cart failed")
	}

	ttl := r.baseTTL
	if r.baseTTL >= time.Minute {
		ttl += time.Duration(rand.Intn(5)) * time.Minute
	}
	stored, err := setIfCurrent.Run(ctx, r.client,
		[]string{cacheKey(owner), versionKey(owner)},
		version, data, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return errors.Wrap(err, "redis set failed")
	}
	if stored == 0 {
		return ErrStaleVersion
	}
	return nil
}

// Delete drops the cached carts and bumps each owner's version so that reads
// already in flight cannot store what they loaded.
func (r *RedisCache) Delete(ctx context.Context, owners ...models.CartOwner) error {
	if len(owners) == 0 {
		return nil
	}
	keys := make([]string, len(owners))
	for i, owner := range owners {
		keys[i] = cacheKey(owner)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, owner := range owners {
			pipe.Incr(ctx, versionKey(owner))
			pipe.Expire(ctx, versionKey(owner), versionTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redis delete failed")
	}
	return nil
}

func cacheKey(owner models.CartOwner) string {
	return "cart:" + owner.Key()
}

func versionKey(owner models.CartOwner) string {
	return "cart:version:" + owner.Key()
}
