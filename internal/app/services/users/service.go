// Package users manages account registration, credential checks and the
// stored push-subscription descriptor.
package users

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/careconnect/backend/internal/app/domain/user"
	"github.com/careconnect/backend/internal/app/storage"
	"github.com/careconnect/backend/internal/errors"
	"github.com/careconnect/backend/internal/logging"
)

const minPasswordLength = 6

// Claims are the JWT claims issued on register/login and verified by the
// auth middleware.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service manages user accounts and issues access tokens.
type Service struct {
	store    storage.UserStore
	secret   []byte
	tokenTTL time.Duration
	log      *logging.Logger
}

// New constructs a users service. secret signs HS256 access tokens.
func New(store storage.UserStore, secret []byte, tokenTTL time.Duration, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("users")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{store: store, secret: secret, tokenTTL: tokenTTL, log: log}
}

// Register creates an account with a bcrypt-hashed password and returns the
// stored user with a signed access token.
func (s *Service) Register(ctx context.Context, email, password, name string) (user.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, "", errors.Validation("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return user.User{}, "", errors.Validation("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, "", errors.Internal("Server error", err)
	}

	u := user.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
	}
	u, err = s.store.CreateUser(ctx, u)
	if err != nil {
		if stderrors.Is(err, storage.ErrDuplicateEmail) {
			return user.User{}, "", errors.Validation("email already registered")
		}
		return user.User{}, "", errors.Internal("Server error", err)
	}

	token, err := s.issueToken(u)
	if err != nil {
		return user.User{}, "", errors.Internal("Server error", err)
	}
	s.log.WithField("user_id", u.ID).Info("user registered")
	return u, token, nil
}

// Login verifies the credentials and returns the user with a fresh token.
// Wrong email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (user.User, string, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return user.User{}, "", errors.Unauthorized("Invalid credentials")
		}
		return user.User{}, "", errors.Internal("Server error", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return user.User{}, "", errors.Unauthorized("Invalid credentials")
	}

	token, err := s.issueToken(u)
	if err != nil {
		return user.User{}, "", errors.Internal("Server error", err)
	}
	return u, token, nil
}

// Get returns the account by ID.
func (s *Service) Get(ctx context.Context, userID string) (user.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return user.User{}, errors.NotFound("User")
		}
		return user.User{}, errors.Internal("Server error", err)
	}
	return u, nil
}

// SaveSubscription stores the push-subscription descriptor whole, or clears
// it when sub is nil. Partial descriptors are rejected.
func (s *Service) SaveSubscription(ctx context.Context, userID string, sub *user.Subscription) error {
	if sub != nil {
		if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
			return errors.Validation("subscription requires endpoint and both keys")
		}
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("User")
		}
		return errors.Internal("Server error", err)
	}
	u.Subscription = sub
	if _, err := s.store.UpdateUser(ctx, u); err != nil {
		return errors.Internal("Server error", err)
	}
	s.log.WithField("user_id", userID).Info("push subscription saved")
	return nil
}

func (s *Service) issueToken(u user.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
