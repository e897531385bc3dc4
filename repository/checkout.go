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

type mongoCheckoutRepository struct {
	collection *mongo.Collection
}

func NewCheckoutRepository(db *mongo.Database) CheckoutRepository {
	return &mongoCheckoutRepository{collection: db.Collection(database.CheckoutsCollection)}
}

func (r *mongoCheckoutRepository) Create(ctx context.Context, checkout *models.Checkout) error {
	if checkout.ID.IsZero() {
		checkout.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, checkout); err != nil {
		return errors.Wrap(err, "failed to create checkout")
	}
	return nil
}

func (r *mongoCheckoutRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Checkout, error) {
	var checkout models.Checkout
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&checkout); err != nil {
		return nil, notFoundOr(err, "failed to get checkout")
	}
	return &checkout, nil
}

// MarkPaid records the payment proof. A txHash already recorded on another
// checkout fails with ErrDuplicate.
func (r *mongoCheckoutRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, details models.PaymentDetails, paidAt time.Time) (*models.Checkout, error) {
	filter := bson.M{
		"_id":         id,
		"isFinalized": false,
		"state":       bson.M{"$in": bson.A{models.CheckoutStateCreated, models.CheckoutStatePaid}},
	}
	update := bson.M{
		"$set": bson.M{
			"isPaid":         true,
			"paymentStatus":  models.PaymentStatusPaid,
			"state":          models.CheckoutStatePaid,
			"paymentDetails": details,
			"paidAt":         paidAt,
			"updatedAt":      paidAt,
		},
	}
	return r.transition(ctx, filter, update, "failed to mark checkout paid")
}

func (r *mongoCheckoutRepository) ClaimFinalization(ctx context.Context, id, orderID primitive.ObjectID, now, staleBefore time.Time) (*models.Checkout, error) {
	filter := bson.M{
		"_id":         id,
		"isPaid":      true,
		"isFinalized": false,
		"$or": bson.A{
			bson.M{"state": models.CheckoutStatePaid},
			bson.M{"state": models.CheckoutStateFinalizing, "finalizingAt": bson.M{"$lt": staleBefore}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"state":        models.CheckoutStateFinalizing,
			"finalizingAt": now,
			"orderId":      orderID,
			"updatedAt":    now,
		},
	}
	return r.transition(ctx, filter, update, "failed to claim checkout finalization")
}

func (r *mongoCheckoutRepository) ReleaseFinalization(ctx context.Context, id primitive.ObjectID, claimedAt time.Time) error {
	filter := bson.M{
		"_id":          id,
		"state":        models.CheckoutStateFinalizing,
		"finalizingAt": claimedAt,
	}
	update := bson.M{
		"$set":   bson.M{"state": models.CheckoutStatePaid, "updatedAt": time.Now()},
		"$unset": bson.M{"finalizingAt": ""},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrap(err, "failed to release checkout finalization")
	}
	if result.MatchedCount == 0 {
		return ErrStateChanged
	}
	return nil
}

func (r *mongoCheckoutRepository) CompleteFinalization(ctx context.Context, id, orderID primitive.ObjectID, now time.Time) (*models.Checkout, error) {
	filter := bson.M{
		"_id":     id,
		"state":   models.CheckoutStateFinalizing,
		"orderId": orderID,
	}
	update := bson.M{
		"$set": bson.M{
			"state":       models.CheckoutStateFinalized,
			"isFinalized": true,
			"finalizedAt": now,
			"updatedAt":   now,
		},
		"$unset": bson.M{"finalizingAt": ""},
	}
	return r.transition(ctx, filter, update, "failed to finalize checkout")
}

// transition applies update only while filter still matches the stored
// session, returning the session as written.
func (r *mongoCheckoutRepository) transition(ctx context.Context, filter, update bson.M, msg string) (*models.Checkout, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var checkout models.Checkout
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&checkout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrStateChanged
		}
		return nil, duplicateOr(err, msg)
	}
	return &checkout, nil
}
