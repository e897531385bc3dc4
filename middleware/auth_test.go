package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/mivine/essentials-backend-go/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const secret = "test-secret"

// stubUsers serves FindByID from a map; the other methods are unused here.
type stubUsers struct {
	repository.UserRepository
	users map[primitive.ObjectID]*models.User
}

func (s stubUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func newServer(users stubUsers) *echo.Echo {
	e := echo.New()
	auth := Auth(secret, users)
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, CurrentUser(c).Name)
	}, auth)
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, auth, AdminOnly)
	return e
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := utils.GenerateJWT(secret, u.ID.Hex(), u.Role, time.Hour)
	require.NoError(t, err)
	return token
}

func TestAuth(t *testing.T) {
	customer := &models.User{ID: primitive.NewObjectID(), Name: "Cy", Role: models.RoleCustomer}
	admin := &models.User{ID: primitive.NewObjectID(), Name: "Root", Role: models.RoleAdmin}
	ghost := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	e := newServer(stubUsers{users: map[primitive.ObjectID]*models.User{
		customer.ID: customer,
		admin.ID:    admin,
	}})

	tests := []struct {
		name   string
		path   string
		header string
		code   int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"not bearer", "/me", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"deleted user", "/me", "Bearer " + tokenFor(t, ghost), http.StatusUnauthorized},
		{"customer", "/me", "Bearer " + tokenFor(t, customer), http.StatusOK},
		{"customer on admin route", "/admin", "Bearer " + tokenFor(t, customer), http.StatusForbidden},
		{"admin", "/admin", "Bearer " + tokenFor(t, admin), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestAdminOnly_Message(t *testing.T) {
	customer := &models.User{ID: primitive.NewObjectID(), Role: models.RoleCustomer}
	e := newServer(stubUsers{users: map[primitive.ObjectID]*models.User{customer.ID: customer}})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tokenFor(t, customer))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Not Authorized as an admin"}`, rec.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	customer := &models.User{ID: primitive.NewObjectID(), Name: "Cy", Role: models.RoleCustomer}
	e := echo.New()
	e.GET("/cart", func(c echo.Context) error {
		if u := CurrentUser(c); u != nil {
			return c.String(http.StatusOK, u.Name)
		}
		return c.String(http.StatusOK, "guest")
	}, OptionalAuth(secret, stubUsers{users: map[primitive.ObjectID]*models.User{customer.ID: customer}}))

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"anonymous", "", http.StatusOK, "guest"},
		{"signed in", "Bearer " + tokenFor(t, customer), http.StatusOK, "Cy"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}
