package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/mivine/essentials-backend-go/utils"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Session is what a client receives after register or login.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type UserService struct {
	users     repository.UserRepository
	logger    echo.Logger
	jwtSecret string
	jwtTTL    time.Duration
	now       func() time.Time
}

func NewUserService(users repository.UserRepository, logger echo.Logger, jwtSecret string, jwtTTL time.Duration) *UserService {
	return &UserService{
		users:     users,
		logger:    logger,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		now:       time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, in UserInput) (*Session, error) {
	in.Role = models.RoleCustomer
	user, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid("Invalid Credentials")
	}
	if err != nil {
		return nil, fault(err, "find user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid("Invalid Credentials")
	}
	return s.session(user)
}

func (s *UserService) Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fault(err, "get user")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fault(err, "list users")
	}
	return users, nil
}

// Create is the admin variant of Register: the role is chosen by the caller
// and no token is issued.
func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}
	return s.create(ctx, in)
}

// Update changes name, email and role. Empty fields keep their value.
func (s *UserService) Update(ctx context.Context, id primitive.ObjectID, in UserInput) (*models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		user.Name = strings.TrimSpace(in.Name)
	}
	if in.Email != "" {
		email, err := validEmail(in.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if in.Role != "" {
		if !validRole(in.Role) {
			return nil, invalid("Invalid role")
		}
		user.Role = in.Role
	}

	err = s.users.Update(ctx, user)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFound("User not found")
	case errors.Is(err, repository.ErrDuplicate):
		return nil, conflict("User already exists")
	case err != nil:
		return nil, fault(err, "update user")
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("User not found")
	}
	if err != nil {
		return fault(err, "delete user")
	}
	s.logger.Infoj(log.JSON{"msg": "user deleted", "user": id.Hex()})
	return nil
}

func (s *UserService) create(ctx context.Context, in UserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("Name is required")
	}
	email, err := validEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("Password must be at least 6 characters")
	}
	if !validRole(in.Role) {
		return nil, invalid("Invalid role")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fault(err, "hash password")
	}

	now := s.now()
	user := &models.User{
		Name:      name,
		Email:     email,
		Password:  string(hashedPassword),
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.users.Insert(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, conflict("User already exists")
	}
	if err != nil {
		return nil, fault(err, "create user")
	}

	s.logger.Infoj(log.JSON{"msg": "user created", "user": user.ID.Hex(), "role": user.Role})
	return user, nil
}

func (s *UserService) session(user *models.User) (*Session, error) {
	token, err := utils.GenerateJWT(s.jwtSecret, user.ID.Hex(), user.Role, s.jwtTTL)
	if err != nil {
		return nil, fault(err, "sign token")
	}
	return &Session{User: user, Token: token}, nil
}

func validEmail(raw string) (string, error) {
	email := normalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("Invalid email")
	}
	return email, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validRole(role string) bool {
	return role == models.RoleCustomer || role == models.RoleAdmin
}
