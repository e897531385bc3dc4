package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusProcessing = "Processing"
	OrderStatusDelivered  = "Delivered"
)

type Order struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	User            primitive.ObjectID  `bson:"user" json:"user"`
	Checkout        *primitive.ObjectID `bson:"checkout,omitempty" json:"checkout,omitempty"`
	OrderItems      []LineItem          `bson:"orderItems" json:"orderItems"`
	ShippingAddress ShippingAddress     `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string              `bson:"paymentMethod" json:"paymentMethod"`
	TotalPrice      float64             `bson:"totalPrice" json:"totalPrice"`
	IsPaid          bool                `bson:"isPaid" json:"isPaid"`
	PaidAt          *time.Time          `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	PaymentStatus   PaymentStatus       `bson:"paymentStatus" json:"paymentStatus"`
	PaymentDetails  PaymentDetails      `bson:"paymentDetails,omitempty" json:"paymentDetails,omitempty"`
	Status          string              `bson:"status" json:"status"`
	IsDelivered     bool                `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt     *time.Time          `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// OrderFromCheckout copies a paid checkout session into a new order.
func OrderFromCheckout(id primitive.ObjectID, c *Checkout, now time.Time) *Order {
	items := make([]LineItem, len(c.CheckoutItems))
	copy(items, c.CheckoutItems)
	checkoutID := c.ID
	return &Order{
		ID:              id,
		User:            c.User,
		Checkout:        &checkoutID,
		OrderItems:      items,
		ShippingAddress: c.ShippingAddress,
		PaymentMethod:   c.PaymentMethod,
		TotalPrice:      c.TotalPrice,
		IsPaid:          true,
		PaidAt:          c.PaidAt,
		PaymentStatus:   PaymentStatusPaid,
		PaymentDetails:  c.PaymentDetails,
		Status:          OrderStatusProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
