package repository

import (
	"context"
	"time"

	"github.com/mivine/essentials-backend-go/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
	// ErrStateChanged is returned by conditional writes whose filter no longer
	// matches because another request moved the document first.
	ErrStateChanged = errors.New("document state changed")
)

type CheckoutRepository interface {
	Create(ctx context.Context, checkout *models.Checkout) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Checkout, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, details models.PaymentDetails, paidAt time.Time) (*models.Checkout, error)
	ClaimFinalization(ctx context.Context, id, orderID primitive.ObjectID, now, staleBefore time.Time) (*models.Checkout, error)
	// ReleaseFinalization hands a claim back only while it is still the one
	// taken at claimedAt.
	ReleaseFinalization(ctx context.Context, id primitive.ObjectID, claimedAt time.Time) error
	CompleteFinalization(ctx context.Context, id, orderID primitive.ObjectID, now time.Time) (*models.Checkout, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	Summary(ctx context.Context) (SalesSummary, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string, delivered bool, now time.Time) (*models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type SalesSummary struct {
	TotalOrders int64   `bson:"totalOrders"`
	TotalSales  float64 `bson:"totalSales"`
}

type CartRepository interface {
	Find(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type ProductRepository interface {
	Insert(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type UserRepository interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// Summaries returns name and email of the users that still exist among ids.
	Summaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func duplicateOr(err error, msg string) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return errors.Wrap(err, msg)
}
