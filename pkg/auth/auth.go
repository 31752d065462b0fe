// Package auth handles user accounts and bearer-token authentication.
//
// Passwords are stored as bcrypt hashes; sessions are stateless JWTs signed
// with HMAC-SHA256, carrying the user's email as subject and an expiry.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/soulrag/soulrag-go/pkg/core"
)

// User is one registered account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// UserStore persists accounts.
type UserStore interface {
	// Create persists a new account. Fails with core.ErrEmailTaken when the
	// email is already registered.
	Create(ctx context.Context, username, email, passwordHash string) (*User, error)

	// ByEmail returns the account with the given email, or core.ErrNotFound.
	ByEmail(ctx context.Context, email string) (*User, error)

	// Close releases the underlying connection.
	Close() error
}

// Service implements registration, login, and token verification.
type Service struct {
	users     UserStore
	secretKey []byte
	tokenTTL  time.Duration
}

// NewService creates an auth service signing tokens with secretKey.
func NewService(users UserStore, secretKey string, tokenTTL time.Duration) *Service {
	return &Service{
		users:     users,
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, core.NewSoulError("Register",
			fmt.Errorf("%w: email and password are required", core.ErrInvalidInput))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, core.NewSoulError("Register", err)
	}

	return s.users.Create(ctx, username, email, string(hash))
}

// Login verifies the credentials and returns a signed bearer token.
//
// Unknown email and wrong password both fail with core.ErrInvalidCredentials
// so the response does not reveal which part was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return "", core.NewSoulError("Login", core.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", core.NewSoulError("Login", core.ErrInvalidCredentials)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})

	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", core.NewSoulError("Login", err)
	}
	return signed, nil
}

// VerifyToken validates a bearer token and resolves it to its account.
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, core.NewSoulError("VerifyToken", core.ErrInvalidCredentials)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, core.NewSoulError("VerifyToken", core.ErrInvalidCredentials)
	}

	user, err := s.users.ByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, core.NewSoulError("VerifyToken", core.ErrInvalidCredentials)
	}
	return user, nil
}
