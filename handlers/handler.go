package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/mivine/essentials-backend-go/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CheckoutService interface {
	Create(ctx context.Context, userID primitive.ObjectID, in services.CreateCheckoutInput) (*models.Checkout, error)
	Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Checkout, error)
	MarkPaid(ctx context.Context, userID, id primitive.ObjectID, status string, details models.PaymentDetails) (*models.Checkout, error)
	Finalize(ctx context.Context, userID, id primitive.ObjectID) (*models.Order, error)
}

type OrderService interface {
	ListMine(ctx context.Context, userID primitive.ObjectID) (*services.MyOrders, error)
	Get(ctx context.Context, userID primitive.ObjectID, isAdmin bool, id primitive.ObjectID) (*services.OrderView, error)
	Create(ctx context.Context, userID primitive.ObjectID, in services.CreateOrderInput) (*models.Order, error)
	ListAll(ctx context.Context) (*services.AdminOrderList, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CartService interface {
	Get(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	Add(ctx context.Context, owner models.CartOwner, in services.CartItemInput) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, owner models.CartOwner, in services.CartItemInput) (*models.Cart, error)
	Remove(ctx context.Context, owner models.CartOwner, in services.CartItemInput) (*models.Cart, error)
	Merge(ctx context.Context, userID primitive.ObjectID, guestID string) (*models.Cart, error)
}

type ProductService interface {
	List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	BestSeller(ctx context.Context) (*models.Product, error)
	NewArrivals(ctx context.Context) ([]models.Product, error)
	Similar(ctx context.Context, id primitive.ObjectID) ([]models.Product, error)
	Create(ctx context.Context, adminID primitive.ObjectID, in services.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, in services.ProductInput) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListAll(ctx context.Context) ([]models.Product, error)
}

type UserService interface {
	Register(ctx context.Context, in services.UserInput) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, in services.UserInput) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, in services.UserInput) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Handler struct {
	checkouts CheckoutService
	orders    OrderService
	carts     CartService
	products  ProductService
	users     UserService
}

func New(checkouts CheckoutService, orders OrderService, carts CartService, products ProductService, users UserService) *Handler {
	return &Handler{
		checkouts: checkouts,
		orders:    orders,
		carts:     carts,
		products:  products,
		users:     users,
	}
}

func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// respondError writes the client-facing part of a service error. Server
// faults are logged with their cause and reported generically.
func respondError(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch services.KindOf(err) {
	case services.KindInvalidRequest:
		code = http.StatusBadRequest
	case services.KindNotFound:
		code = http.StatusNotFound
	case services.KindConflict:
		code = http.StatusConflict
	default:
		c.Logger().Errorj(log.JSON{"msg": "request failed", "method": c.Request().Method, "path": c.Path(), "error": err.Error()})
	}
	return c.JSON(code, map[string]string{"message": services.MessageOf(err)})
}

func message(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"message": msg})
}

// paramID parses the ObjectID in the named path parameter.
func paramID(c echo.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	return id, err == nil
}
