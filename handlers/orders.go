package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mivine/essentials-backend-go/middleware"
	"github.com/mivine/essentials-backend-go/services"
)

type updateOrderRequest struct {
	Status string `json:"status"`
}

func (h *Handler) GetMyOrders(c echo.Context) error {
	user := middleware.CurrentUser(c)
	list, err := h.orders.ListMine(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Order not found")
	}

	user := middleware.CurrentUser(c)
	order, err := h.orders.Get(c.Request().Context(), user.ID, user.IsAdmin(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var in services.CreateOrderInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	user := middleware.CurrentUser(c)
	order, err := h.orders.Create(c.Request().Context(), user.ID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetAllOrders(c echo.Context) error {
	list, err := h.orders.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Order not found")
	}
	var req updateOrderRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	order, err := h.orders.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) DeleteOrder(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Order not found")
	}
	if err := h.orders.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return message(c, http.StatusOK, "Order Removed")
}
