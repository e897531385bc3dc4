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

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{collection: db.Collection(database.OrdersCollection)}
}

func (r *mongoOrderRepository) Insert(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		return duplicateOr(err, "failed to create order")
	}
	return nil
}

func (r *mongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, notFoundOr(err, "failed to get order")
	}
	return &order, nil
}

func (r *mongoOrderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.find(ctx, bson.M{"user": userID})
}

func (r *mongoOrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoOrderRepository) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, errors.Wrap(err, "failed to decode orders")
	}
	return orders, nil
}

func (r *mongoOrderRepository) Summary(ctx context.Context) (SalesSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalOrders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalSales", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$totalPrice", 0}}}}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return SalesSummary{}, errors.Wrap(err, "failed to aggregate sales")
	}
	defer cursor.Close(ctx)

	var summary SalesSummary
	if cursor.Next(ctx) {
		if err := cursor.Decode(&summary); err != nil {
			return SalesSummary{}, errors.Wrap(err, "failed to decode sales summary")
		}
	}
	return summary, errors.Wrap(cursor.Err(), "failed to read sales summary")
}

func (r *mongoOrderRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status string, delivered bool, now time.Time) (*models.Order, error) {
	set := bson.M{"status": status, "updatedAt": now}
	if delivered {
		set["isDelivered"] = true
		set["deliveredAt"] = now
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&order)
	if err != nil {
		return nil, notFoundOr(err, "failed to update order status")
	}
	return &order, nil
}

func (r *mongoOrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "failed to delete order")
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
