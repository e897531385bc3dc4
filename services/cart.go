package services

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/cache"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

type CartItemInput struct {
	ProductID primitive.ObjectID
	Quantity  int
	Size      string
	Color     string
}

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	logger   echo.Logger
	sfg      singleflight.Group // collapses concurrent cache misses per owner
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, c cache.CartCache, logger echo.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		cache:    c,
		logger:   logger,
	}
}

func (s *CartService) Get(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, invalid("User ID or guest ID is required")
	}

	v, err, _ := s.sfg.Do(owner.Key(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, owner)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warnj(log.JSON{"msg": "cart cache read failed", "owner": owner.Key(), "error": err.Error()})
		}

		// The version is read before the cart so an invalidation that lands
		// in between makes the write back a no-op.
		version, verr := s.cache.Version(ctx, owner)
		cart, err = s.find(ctx, owner)
		if err != nil {
			return nil, err
		}
		if verr != nil {
			s.logger.Warnj(log.JSON{"msg": "cart cache version read failed", "owner": owner.Key(), "error": verr.Error()})
			return cart, nil
		}
		err = s.cache.Set(ctx, owner, cart, version)
		if err != nil && !errors.Is(err, cache.ErrStaleVersion) {
			s.logger.Warnj(log.JSON{"msg": "cart cache write failed", "owner": owner.Key(), "error": err.Error()})
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Cart), nil
}

// Add puts a product into the owner's cart, creating the cart on first use.
// Adding a product variant that is already present raises its quantity.
func (s *CartService) Add(ctx context.Context, owner models.CartOwner, in CartItemInput) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, invalid("User ID or guest ID is required")
	}
	if in.Quantity < 1 {
		return nil, invalid("Quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, in.ProductID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Product not found")
	}
	if err != nil {
		return nil, fault(err, "get product")
	}

	for attempt := 0; ; attempt++ {
		cart, err := s.find(ctx, owner)
		if KindOf(err) == KindNotFound {
			cart = &models.Cart{User: owner.UserID, GuestID: owner.GuestID}
		} else if err != nil {
			return nil, err
		}

		if i := cart.IndexOf(in.ProductID, in.Size, in.Color); i >= 0 {
			cart.Products[i].Quantity += in.Quantity
		} else {
			cart.Products = append(cart.Products, models.LineItem{
				ProductID: product.ID,
				Name:      product.Name,
				Image:     product.PrimaryImage(),
				Price:     product.Price,
				Quantity:  in.Quantity,
				Size:      in.Size,
				Color:     in.Color,
			})
		}

		saved, err := s.save(ctx, cart, owner)
		if KindOf(err) == KindConflict && attempt == 0 {
			// a concurrent request created the owner's cart first; add to that one
			continue
		}
		return saved, err
	}
}

// UpdateQuantity sets a line's quantity; zero removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, owner models.CartOwner, in CartItemInput) (*models.Cart, error) {
	if in.Quantity < 0 {
		return nil, invalid("Quantity cannot be negative")
	}
	cart, i, err := s.findLine(ctx, owner, in)
	if err != nil {
		return nil, err
	}

	if in.Quantity > 0 {
		cart.Products[i].Quantity = in.Quantity
	} else {
		cart.Products = append(cart.Products[:i], cart.Products[i+1:]...)
	}
	return s.save(ctx, cart, owner)
}

func (s *CartService) Remove(ctx context.Context, owner models.CartOwner, in CartItemInput) (*models.Cart, error) {
	cart, i, err := s.findLine(ctx, owner, in)
	if err != nil {
		return nil, err
	}
	cart.Products = append(cart.Products[:i], cart.Products[i+1:]...)
	return s.save(ctx, cart, owner)
}

// Merge folds a guest cart into the user's cart after login. When the user
// has no cart yet the guest cart is handed over as is.
func (s *CartService) Merge(ctx context.Context, userID primitive.ObjectID, guestID string) (*models.Cart, error) {
	if guestID == "" {
		return nil, invalid("Guest ID is required")
	}
	guestOwner := models.GuestOwner(guestID)
	userOwner := models.UserOwner(userID)

	guestCart, err := s.find(ctx, guestOwner)
	if err != nil && KindOf(err) != KindNotFound {
		return nil, err
	}
	userCart, err := s.find(ctx, userOwner)
	if err != nil && KindOf(err) != KindNotFound {
		return nil, err
	}

	switch {
	case guestCart == nil && userCart == nil:
		return nil, notFound("Guest cart not found")
	case guestCart == nil:
		return userCart, nil
	case len(guestCart.Products) == 0:
		return nil, invalid("Guest cart is empty")
	case userCart == nil:
		guestCart.User = &userID
		guestCart.GuestID = ""
		cart, err := s.save(ctx, guestCart, userOwner)
		if err != nil {
			return nil, err
		}
		s.invalidate(ctx, guestOwner)
		return cart, nil
	}

	for _, line := range guestCart.Products {
		if i := userCart.IndexOf(line.ProductID, line.Size, line.Color); i >= 0 {
			userCart.Products[i].Quantity += line.Quantity
		} else {
			userCart.Products = append(userCart.Products, line)
		}
	}
	cart, err := s.save(ctx, userCart, userOwner)
	if err != nil {
		return nil, err
	}
	if err := s.carts.Delete(ctx, guestCart.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fault(err, "delete guest cart")
	}
	s.invalidate(ctx, guestOwner)

	s.logger.Infoj(log.JSON{"msg": "guest cart merged", "guest": guestID, "user": userID.Hex(), "lines": len(cart.Products)})
	return cart, nil
}

// ClearUser deletes every cart of the user. Unlike other writes a failed
// cache invalidation is reported, since a stale cached cart would resurrect
// items that were just ordered.
func (s *CartService) ClearUser(ctx context.Context, userID primitive.ObjectID) error {
	owner := models.UserOwner(userID)
	if _, err := s.carts.DeleteByUser(ctx, userID); err != nil {
		return fault(err, "clear user carts")
	}
	s.sfg.Forget(owner.Key())
	if err := s.cache.Delete(ctx, owner); err != nil {
		return fault(err, "clear user cart cache")
	}
	return nil
}

func (s *CartService) find(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	cart, err := s.carts.Find(ctx, owner)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Cart not found")
	}
	if err != nil {
		return nil, fault(err, "get cart")
	}
	return cart, nil
}

func (s *CartService) findLine(ctx context.Context, owner models.CartOwner, in CartItemInput) (*models.Cart, int, error) {
	if owner.IsZero() {
		return nil, -1, invalid("User ID or guest ID is required")
	}
	cart, err := s.find(ctx, owner)
	if err != nil {
		return nil, -1, err
	}
	i := cart.IndexOf(in.ProductID, in.Size, in.Color)
	if i < 0 {
		return nil, -1, notFound("Product not found in cart")
	}
	return cart, i, nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart, owner models.CartOwner) (*models.Cart, error) {
	cart.Recalculate()
	err := s.carts.Save(ctx, cart)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, conflict("Cart was changed by another request")
	}
	if err != nil {
		return nil, fault(err, "save cart")
	}
	s.invalidate(ctx, owner)
	return cart, nil
}

func (s *CartService) invalidate(ctx context.Context, owner models.CartOwner) {
	s.sfg.Forget(owner.Key())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.logger.Warnj(log.JSON{"msg": "cart cache invalidate failed", "owner": owner.Key(), "error": err.Error()})
	}
}
