package cache

import (
	"context"
	"errors"

	"github.com/mivine/essentials-backend-go/models"
)

// CartCache holds read-through copies of carts. Every Delete bumps a
// per-owner version, and Set only stores a cart when the version it was read
// under is still current, so a slow read cannot overwrite an invalidation.
type CartCache interface {
	Get(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	Version(ctx context.Context, owner models.CartOwner) (int64, error)
	Set(ctx context.Context, owner models.CartOwner, cart *models.Cart, version int64) error
	Delete(ctx context.Context, owners ...models.CartOwner) error
}

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrStaleVersion = errors.New("cart was invalidated after it was read")
)
