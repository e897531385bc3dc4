package repository

import (
	"context"
	"time"

	"github.com/mivine/essentials-backend-go/database"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{collection: db.Collection(database.CartsCollection)}
}

func ownerFilter(owner models.CartOwner) bson.M {
	if owner.UserID != nil {
		return bson.M{"user": *owner.UserID}
	}
	return bson.M{"guestId": owner.GuestID}
}

func (r *mongoCartRepository) Find(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	var cart models.Cart
	if err := r.collection.FindOne(ctx, ownerFilter(owner)).Decode(&cart); err != nil {
		return nil, notFoundOr(err, "failed to get cart")
	}
	return &cart, nil
}

// Save writes the whole cart document, inserting it when it has no id yet.
// Inserting a second cart for an owner fails with ErrDuplicate.
func (r *mongoCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart, opts); err != nil {
		return duplicateOr(err, "failed to save cart")
	}
	return nil
}

func (r *mongoCartRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "failed to delete cart")
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCartRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear user carts")
	}
	return result.DeletedCount, nil
}
