package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store resolves users into identities.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FindByEmail looks up a user by lower-cased email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	return s.findOne(ctx, "SELECT id, tenant_id, email, name FROM users WHERE email = $1", email)
}

// FindByID looks up a user by id. Malformed ids are reported as not found.
func (s *Store) FindByID(ctx context.Context, userID string) (*Identity, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrUserNotFound
	}
	return s.findOne(ctx, "SELECT id, tenant_id, email, name FROM users WHERE id = $1", userID)
}

func (s *Store) findOne(ctx context.Context, query string, arg string) (*Identity, error) {
	var identity Identity
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&identity.UserID, &identity.TenantID, &identity.Email, &identity.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &identity, nil
}
