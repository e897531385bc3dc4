package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mivine/essentials-backend-go/middleware"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/services"
)

type payCheckoutRequest struct {
	PaymentStatus  string                `json:"paymentStatus"`
	PaymentDetails models.PaymentDetails `json:"paymentDetails"`
}

func (h *Handler) CreateCheckout(c echo.Context) error {
	var in services.CreateCheckoutInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	user := middleware.CurrentUser(c)
	checkout, err := h.checkouts.Create(c.Request().Context(), user.ID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, checkout)
}

func (h *Handler) GetCheckout(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Checkout not found")
	}

	user := middleware.CurrentUser(c)
	checkout, err := h.checkouts.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, checkout)
}

func (h *Handler) PayCheckout(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Checkout not found")
	}
	var req payCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	user := middleware.CurrentUser(c)
	checkout, err := h.checkouts.MarkPaid(c.Request().Context(), user.ID, id, req.PaymentStatus, req.PaymentDetails)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, checkout)
}

func (h *Handler) FinalizeCheckout(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Checkout not found")
	}

	user := middleware.CurrentUser(c)
	order, err := h.checkouts.Finalize(c.Request().Context(), user.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}
