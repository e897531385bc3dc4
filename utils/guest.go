package utils

import "github.com/google/uuid"

const guestPrefix = "guest_"

// NewGuestID returns a fresh identifier for an anonymous cart.
func NewGuestID() string {
	return guestPrefix + uuid.NewString()
}
