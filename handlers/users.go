package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mivine/essentials-backend-go/middleware"
	"github.com/mivine/essentials-backend-go/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) RegisterUser(c echo.Context) error {
	var in services.UserInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	session, err := h.users.Register(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *Handler) LoginUser(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	session, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) GetUserProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

func (h *Handler) GetUsers(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var in services.UserInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	user, err := h.users.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"message": "User created successfully", "user": user})
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "User not found")
	}
	var in services.UserInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	in.Password = ""

	user, err := h.users.Update(c.Request().Context(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "User updated successfully", "user": user})
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "User not found")
	}
	if err := h.users.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return message(c, http.StatusOK, "User deleted successfully")
}
