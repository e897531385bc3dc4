package services

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	newArrivalsLimit = 8
	similarLimit     = 4
)

// ProductInput carries the editable product fields. On update, zero values
// leave the stored field untouched.
type ProductInput struct {
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Price         float64               `json:"price"`
	DiscountPrice float64               `json:"discountPrice"`
	CountInStock  *int                  `json:"countInStock"`
	SKU           string                `json:"sku"`
	Category      string                `json:"category"`
	Brand         string                `json:"brand"`
	Sizes         []string              `json:"sizes"`
	Colors        []string              `json:"colors"`
	Collections   string                `json:"collections"`
	Material      string                `json:"material"`
	Gender        string                `json:"gender"`
	Images        []models.ProductImage `json:"images"`
	IsFeatured    *bool                 `json:"isFeatured"`
	IsPublished   *bool                 `json:"isPublished"`
}

type ProductService struct {
	products repository.ProductRepository
	logger   echo.Logger
	now      func() time.Time
}

func NewProductService(products repository.ProductRepository, logger echo.Logger) *ProductService {
	return &ProductService{products: products, logger: logger, now: time.Now}
}

func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fault(err, "list products")
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Product not found")
	}
	if err != nil {
		return nil, fault(err, "get product")
	}
	return product, nil
}

// BestSeller returns the highest rated product.
func (s *ProductService) BestSeller(ctx context.Context) (*models.Product, error) {
	products, err := s.List(ctx, repository.ProductFilter{Sort: repository.SortPopularity, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, notFound("No best seller found")
	}
	return &products[0], nil
}

func (s *ProductService) NewArrivals(ctx context.Context) ([]models.Product, error) {
	return s.List(ctx, repository.ProductFilter{Sort: repository.SortNewest, Limit: newArrivalsLimit})
}

// Similar lists products sharing the gender and category of the given one.
func (s *ProductService) Similar(ctx context.Context, id primitive.ObjectID) ([]models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, repository.ProductFilter{
		Gender:    product.Gender,
		Category:  product.Category,
		ExcludeID: &product.ID,
		Limit:     similarLimit,
	})
}

func (s *ProductService) Create(ctx context.Context, adminID primitive.ObjectID, in ProductInput) (*models.Product, error) {
	if strings.TrimSpace(in.Name) == "" || in.SKU == "" || in.Category == "" || in.Collections == "" {
		return nil, invalid("name, sku, category and collections are required")
	}
	if in.Price < 0 || in.DiscountPrice < 0 {
		return nil, invalid("price cannot be negative")
	}

	now := s.now()
	product := &models.Product{User: adminID, CreatedAt: now, UpdatedAt: now}
	apply(product, in)

	err := s.products.Insert(ctx, product)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, conflict("Product with this SKU already exists")
	}
	if err != nil {
		return nil, fault(err, "create product")
	}

	s.logger.Infoj(log.JSON{"msg": "product created", "product": product.ID.Hex(), "sku": product.SKU})
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id primitive.ObjectID, in ProductInput) (*models.Product, error) {
	if in.Price < 0 || in.DiscountPrice < 0 {
		return nil, invalid("price cannot be negative")
	}
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(product, in)

	err = s.products.Update(ctx, product)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFound("Product not found")
	case errors.Is(err, repository.ErrDuplicate):
		return nil, conflict("Product with this SKU already exists")
	case err != nil:
		return nil, fault(err, "update product")
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.products.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("Product not found")
	}
	if err != nil {
		return fault(err, "delete product")
	}
	s.logger.Infoj(log.JSON{"msg": "product removed", "product": id.Hex()})
	return nil
}

// ListAll is the unfiltered admin listing.
func (s *ProductService) ListAll(ctx context.Context) ([]models.Product, error) {
	return s.List(ctx, repository.ProductFilter{})
}

func apply(p *models.Product, in ProductInput) {
	if in.Name != "" {
		p.Name = in.Name
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Price > 0 {
		p.Price = in.Price
	}
	if in.DiscountPrice > 0 {
		p.DiscountPrice = in.DiscountPrice
	}
	if in.CountInStock != nil {
		p.CountInStock = *in.CountInStock
	}
	if in.SKU != "" {
		p.SKU = in.SKU
	}
	if in.Category != "" {
		p.Category = in.Category
	}
	if in.Brand != "" {
		p.Brand = in.Brand
	}
	if len(in.Sizes) > 0 {
		p.Sizes = in.Sizes
	}
	if len(in.Colors) > 0 {
		p.Colors = in.Colors
	}
	if in.Collections != "" {
		p.Collections = in.Collections
	}
	if in.Material != "" {
		p.Material = in.Material
	}
	if in.Gender != "" {
		p.Gender = in.Gender
	}
	if len(in.Images) > 0 {
		p.Images = in.Images
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	if in.IsPublished != nil {
		p.IsPublished = *in.IsPublished
	}
}
