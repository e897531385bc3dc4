package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartOwner identifies whose cart is addressed: a signed-in user or a guest.
// Exactly one of the fields is set.
type CartOwner struct {
	UserID  *primitive.ObjectID
	GuestID string
}

func UserOwner(id primitive.ObjectID) CartOwner {
	return CartOwner{UserID: &id}
}

func GuestOwner(guestID string) CartOwner {
	return CartOwner{GuestID: guestID}
}

func (o CartOwner) IsZero() bool {
	return o.UserID == nil && o.GuestID == ""
}

// Key is a stable string form of the owner, used for cache keys and logs.
func (o CartOwner) Key() string {
	if o.UserID != nil {
		return "user:" + o.UserID.Hex()
	}
	return "guest:" + o.GuestID
}

type Cart struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	User       *primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	GuestID    string              `bson:"guestId,omitempty" json:"guestId,omitempty"`
	Products   []LineItem          `bson:"products" json:"products"`
	TotalPrice float64             `bson:"totalPrice" json:"totalPrice"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Recalculate refreshes the cached total from the line items.
func (c *Cart) Recalculate() {
	c.TotalPrice = ItemsTotal(c.Products)
}

// IndexOf returns the position of the matching line or -1.
func (c *Cart) IndexOf(productID primitive.ObjectID, size, color string) int {
	for i, item := range c.Products {
		if item.SameVariant(productID, size, color) {
			return i
		}
	}
	return -1
}
