package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mivine/essentials-backend-go/middleware"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/services"
	"github.com/mivine/essentials-backend-go/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartRequest struct {
	ProductID string `json:"productId" query:"productId"`
	Quantity  int    `json:"quantity" query:"quantity"`
	Size      string `json:"size" query:"size"`
	Color     string `json:"color" query:"color"`
	GuestID   string `json:"guestId" query:"guestId"`
}

func (r cartRequest) item() (services.CartItemInput, bool) {
	id, err := primitive.ObjectIDFromHex(r.ProductID)
	if err != nil {
		return services.CartItemInput{}, false
	}
	return services.CartItemInput{ProductID: id, Quantity: r.Quantity, Size: r.Size, Color: r.Color}, true
}

// cartOwner prefers the signed-in user over any guest id in the request.
func cartOwner(c echo.Context, guestID string) models.CartOwner {
	if user := middleware.CurrentUser(c); user != nil {
		return models.UserOwner(user.ID)
	}
	return models.GuestOwner(guestID)
}

func (h *Handler) GetCart(c echo.Context) error {
	var req cartRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request")
	}

	cart, err := h.carts.Get(c.Request().Context(), cartOwner(c, req.GuestID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// AddToCart starts a guest cart under a fresh guest id when the caller is
// neither signed in nor carrying one. The id comes back in the cart.
func (h *Handler) AddToCart(c echo.Context) error {
	var req cartRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	item, ok := req.item()
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid product ID")
	}
	if middleware.CurrentUser(c) == nil && req.GuestID == "" {
		req.GuestID = utils.NewGuestID()
	}

	cart, err := h.carts.Add(c.Request().Context(), cartOwner(c, req.GuestID), item)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cart)
}

func (h *Handler) UpdateCartItemQuantity(c echo.Context) error {
	var req cartRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	item, ok := req.item()
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid product ID")
	}

	cart, err := h.carts.UpdateQuantity(c.Request().Context(), cartOwner(c, req.GuestID), item)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *Handler) RemoveFromCart(c echo.Context) error {
	var req cartRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	item, ok := req.item()
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid product ID")
	}

	cart, err := h.carts.Remove(c.Request().Context(), cartOwner(c, req.GuestID), item)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *Handler) MergeCart(c echo.Context) error {
	var req cartRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	user := middleware.CurrentUser(c)
	cart, err := h.carts.Merge(c.Request().Context(), user.ID, req.GuestID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}
