package repository

import (
	"context"
	"regexp"
	"time"

	"github.com/mivine/essentials-backend-go/database"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProductSort string

const (
	SortPriceAsc   ProductSort = "priceAsc"
	SortPriceDesc  ProductSort = "priceDesc"
	SortPopularity ProductSort = "popularity"
	SortNewest     ProductSort = "newest"
)

// ProductFilter narrows a catalog listing. Zero values are ignored.
type ProductFilter struct {
	Collection string
	Category   string
	Gender     string
	Brands     []string
	Materials  []string
	Sizes      []string
	Colors     []string
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	ExcludeID  *primitive.ObjectID
	Sort       ProductSort
	Limit      int64
}

func (f ProductFilter) query() bson.M {
	q := bson.M{}
	if f.Collection != "" && f.Collection != "all" {
		q["collections"] = f.Collection
	}
	if f.Category != "" && f.Category != "all" {
		q["category"] = f.Category
	}
	if f.Gender != "" {
		q["gender"] = f.Gender
	}
	if len(f.Brands) > 0 {
		q["brand"] = bson.M{"$in": f.Brands}
	}
	if len(f.Materials) > 0 {
		q["material"] = bson.M{"$in": f.Materials}
	}
	if len(f.Sizes) > 0 {
		q["sizes"] = bson.M{"$in": f.Sizes}
	}
	if len(f.Colors) > 0 {
		q["colors"] = bson.M{"$in": f.Colors}
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		q["price"] = price
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	if f.ExcludeID != nil {
		q["_id"] = bson.M{"$ne": *f.ExcludeID}
	}
	return q
}

func (f ProductFilter) sort() bson.D {
	switch f.Sort {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}}
	case SortPopularity:
		return bson.D{{Key: "rating", Value: -1}}
	case SortNewest:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	return nil
}

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{collection: db.Collection(database.ProductsCollection)}
}

func (r *mongoProductRepository) Insert(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, product); err != nil {
		return duplicateOr(err, "failed to create product")
	}
	return nil
}

func (r *mongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, notFoundOr(err, "failed to get product")
	}
	return &product, nil
}

func (r *mongoProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	opts := options.Find()
	if s := filter.sort(); s != nil {
		opts.SetSort(s)
	}
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := r.collection.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, errors.Wrap(err, "failed to decode products")
	}
	return products, nil
}

func (r *mongoProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return duplicateOr(err, "failed to update product")
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "failed to delete product")
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
