package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// CheckoutState is the lifecycle position of a checkout session. The boolean
// flags (isPaid, isFinalized) are kept alongside it for API compatibility.
type CheckoutState string

const (
	CheckoutStateCreated    CheckoutState = "created"
	CheckoutStatePaid       CheckoutState = "paid"
	CheckoutStateFinalizing CheckoutState = "finalizing"
	CheckoutStateFinalized  CheckoutState = "finalized"
)

// PaymentDetails is the provider payload attached to a payment confirmation.
// It is stored as received and never interpreted outside of payment verifiers.
type PaymentDetails map[string]interface{}

type LineItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Image     string             `bson:"image" json:"image"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Size      string             `bson:"size,omitempty" json:"size,omitempty"`
	Color     string             `bson:"color,omitempty" json:"color,omitempty"`
}

// Subtotal returns price × quantity for the line.
func (l LineItem) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// SameVariant reports whether two lines describe the same product, size and color.
func (l LineItem) SameVariant(productID primitive.ObjectID, size, color string) bool {
	return l.ProductID == productID && l.Size == size && l.Color == color
}

// ItemsTotal sums the subtotals of items.
func ItemsTotal(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

type ShippingAddress struct {
	FirstName  string `bson:"firstName" json:"firstName"`
	LastName   string `bson:"lastName" json:"lastName"`
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	Country    string `bson:"country" json:"country"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Phone      string `bson:"phone" json:"phone"`
	Email      string `bson:"email,omitempty" json:"email,omitempty"`
}

type Checkout struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	User            primitive.ObjectID  `bson:"user" json:"user"`
	CheckoutItems   []LineItem          `bson:"checkoutItems" json:"checkoutItems"`
	ShippingAddress ShippingAddress     `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string              `bson:"paymentMethod" json:"paymentMethod"`
	TotalPrice      float64             `bson:"totalPrice" json:"totalPrice"`
	State           CheckoutState       `bson:"state" json:"state"`
	PaymentStatus   PaymentStatus       `bson:"paymentStatus" json:"paymentStatus"`
	IsPaid          bool                `bson:"isPaid" json:"isPaid"`
	PaidAt          *time.Time          `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	PaymentDetails  PaymentDetails      `bson:"paymentDetails,omitempty" json:"paymentDetails,omitempty"`
	IsFinalized     bool                `bson:"isFinalized" json:"isFinalized"`
	FinalizingAt    *time.Time          `bson:"finalizingAt,omitempty" json:"-"`
	FinalizedAt     *time.Time          `bson:"finalizedAt,omitempty" json:"finalizedAt,omitempty"`
	OrderID         *primitive.ObjectID `bson:"orderId,omitempty" json:"orderId,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ClaimIsStale reports whether a finalizing claim was taken before cutoff.
func (c *Checkout) ClaimIsStale(cutoff time.Time) bool {
	return c.State == CheckoutStateFinalizing && c.FinalizingAt != nil && c.FinalizingAt.Before(cutoff)
}
