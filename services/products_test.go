package services

import (
	"context"
	"testing"
	"time"

	"github.com/mivine/essentials-backend-go/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func catalog() []models.Product {
	now := time.Now()
	products := make([]models.Product, 0, 10)
	for i := 0; i < 10; i++ {
		products = append(products, models.Product{
			ID:        primitive.NewObjectID(),
			Name:      "Tee",
			SKU:       primitive.NewObjectID().Hex(),
			Category:  "Top Wear",
			Gender:    "Men",
			Rating:    float64(i % 5),
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
	}
	products[3].Rating = 4.9
	products[9].Gender = "Women"
	return products
}

func TestProductService_Queries(t *testing.T) {
	ctx := context.Background()
	items := catalog()
	svc := NewProductService(newFakeProducts(items...), testLogger())

	best, err := svc.BestSeller(ctx)
	require.NoError(t, err)
	assert.Equal(t, items[3].ID, best.ID)

	arrivals, err := svc.NewArrivals(ctx)
	require.NoError(t, err)
	require.Len(t, arrivals, 8)
	assert.Equal(t, items[9].ID, arrivals[0].ID)

	similar, err := svc.Similar(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Len(t, similar, 4)
	for _, p := range similar {
		assert.NotEqual(t, items[0].ID, p.ID)
		assert.Equal(t, "Men", p.Gender)
	}

	_, err = svc.Similar(ctx, primitive.NewObjectID())
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestProductService_BestSellerEmpty(t *testing.T) {
	svc := NewProductService(newFakeProducts(), testLogger())
	_, err := svc.BestSeller(context.Background())
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestProductService_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewProductService(newFakeProducts(), testLogger())
	adminID := primitive.NewObjectID()
	stock := 5

	in := ProductInput{
		Name:         "Denim Jacket",
		Price:        89,
		CountInStock: &stock,
		SKU:          "DJ-001",
		Category:     "Top Wear",
		Collections:  "Winter",
		Sizes:        []string{"M", "L"},
	}
	p, err := svc.Create(ctx, adminID, in)
	require.NoError(t, err)
	assert.Equal(t, adminID, p.User)
	assert.Equal(t, 5, p.CountInStock)

	_, err = svc.Create(ctx, adminID, in)
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = svc.Create(ctx, adminID, ProductInput{Name: "No SKU"})
	assert.Equal(t, KindInvalidRequest, KindOf(err))

	published := true
	p, err = svc.Update(ctx, p.ID, ProductInput{Price: 79, IsPublished: &published})
	require.NoError(t, err)
	assert.Equal(t, 79.0, p.Price)
	assert.Equal(t, "Denim Jacket", p.Name)
	assert.True(t, p.IsPublished)

	_, err = svc.Update(ctx, primitive.NewObjectID(), ProductInput{Price: 1})
	assert.Equal(t, KindNotFound, KindOf(err))

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, KindNotFound, KindOf(svc.Delete(ctx, p.ID)))

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
