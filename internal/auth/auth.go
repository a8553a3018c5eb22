package auth

import (
	"context"
	"errors"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrUserNotFound   = errors.New("user not found")
	ErrTenantNotFound = errors.New("tenant not found")
	ErrEmailTaken     = errors.New("email already registered")
)

// Identity represents an authenticated user's claims.
type Identity struct {
	UserID    string `json:"userId"`
	TenantID  string `json:"tenantId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	TokenType string `json:"-"` // "access" or "refresh"
}

// IdentityLookup resolves users by email or id.
type IdentityLookup interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, userID string) (*Identity, error)
}

// RegisterParams is the input to account registration. Email is expected
// trimmed and lower-cased.
type RegisterParams struct {
	Email      string
	Name       string
	TenantID   string
	TenantName string
}

// Registrar creates a user, and the tenant it belongs to when needed.
type Registrar interface {
	Register(ctx context.Context, params RegisterParams) (*Identity, error)
}
