package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/mivine/essentials-backend-go/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const userKey = "user"

// Auth resolves the bearer token to a stored user. The user is loaded on every
// request so that deleted accounts and role changes take effect at once.
func Auth(secret string, users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return unauthorized(c, "Not authorized, no token provided")
			}
			if msg := authenticate(c, secret, users); msg != "" {
				return unauthorized(c, msg)
			}
			return next(c)
		}
	}
}

// OptionalAuth lets anonymous requests through but rejects a bad token, so a
// signed-in client is never silently treated as a guest.
func OptionalAuth(secret string, users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			if msg := authenticate(c, secret, users); msg != "" {
				return unauthorized(c, msg)
			}
			return next(c)
		}
	}
}

// authenticate stores the token's user on c and returns a rejection message
// on failure.
func authenticate(c echo.Context, secret string, users repository.UserRepository) string {
	tokenParts := strings.Split(c.Request().Header.Get(echo.HeaderAuthorization), " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return "Not authorized, no token provided"
	}

	claims, err := utils.ValidateJWT(secret, tokenParts[1])
	if err != nil {
		return "Not authorized, token failed"
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return "Not authorized, token failed"
	}

	user, err := users.FindByID(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Warnf("auth: user %s rejected: %v", claims.UserID, err)
		return "Not authorized, token failed"
	}

	SetUser(c, user)
	return ""
}

// AdminOnly must run after Auth.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Not Authorized as an admin"})
		}
		return next(c)
	}
}

func SetUser(c echo.Context, user *models.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the user set by Auth, or nil on public routes.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userKey).(*models.User)
	return user
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"message": message})
}
