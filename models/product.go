package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductImage struct {
	URL     string `bson:"url" json:"url"`
	AltText string `bson:"altText,omitempty" json:"altText,omitempty"`
}

type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Price         float64            `bson:"price" json:"price"`
	DiscountPrice float64            `bson:"discountPrice,omitempty" json:"discountPrice,omitempty"`
	CountInStock  int                `bson:"countInStock" json:"countInStock"`
	SKU           string             `bson:"sku" json:"sku"`
	Category      string             `bson:"category" json:"category"`
	Brand         string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Sizes         []string           `bson:"sizes" json:"sizes"`
	Colors        []string           `bson:"colors" json:"colors"`
	Collections   string             `bson:"collections" json:"collections"`
	Material      string             `bson:"material,omitempty" json:"material,omitempty"`
	Gender        string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Images        []ProductImage     `bson:"images" json:"images"`
	IsFeatured    bool               `bson:"isFeatured" json:"isFeatured"`
	IsPublished   bool               `bson:"isPublished" json:"isPublished"`
	Rating        float64            `bson:"rating" json:"rating"`
	NumReviews    int                `bson:"numReviews" json:"numReviews"`
	User          primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PrimaryImage returns the first image URL, or an empty string.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}
