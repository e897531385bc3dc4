package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CheckoutsCollection = "checkouts"
	OrdersCollection    = "orders"
	CartsCollection     = "carts"
	ProductsCollection  = "products"
	UsersCollection     = "users"
)

// ConnectMongoDB dials the server, pings it and returns the named database.
func ConnectMongoDB(ctx context.Context, uri, name string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}

	// Ping the database
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}

	return client.Database(name), nil
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CartsCollection: {
			{
				Keys:    bson.D{{Key: "user", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"user": bson.M{"$exists": true}}),
			},
			{
				Keys:    bson.D{{Key: "guestId", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"guestId": bson.M{"$exists": true}}),
			},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		CheckoutsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
			// an on-chain payment can settle a single checkout only
			{
				Keys:    bson.D{{Key: "paymentDetails.txHash", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"paymentDetails.txHash": bson.M{"$exists": true}}),
			},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "gender", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "failed to create indexes on %s", name)
		}
	}
	return nil
}
