package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/jackc/pgx/v5"
)

const usersEmailKey = "users_email_key"

// UserStore handles user database operations.
type UserStore struct{}

// NewUserStore creates a new user store.
func NewUserStore() *UserStore {
	return &UserStore{}
}

// Create inserts a user into tenantID. Email must already be normalized.
func (s *UserStore) Create(ctx context.Context, q database.Querier, tenantID, email, name string) (*User, error) {
	var user User
	err := q.QueryRow(ctx,
		`INSERT INTO users (tenant_id, email, name)
		 VALUES ($1, $2, $3)
		 RETURNING id, tenant_id, email, name, created_at`,
		tenantID, email, name,
	).Scan(&user.ID, &user.TenantID, &user.Email, &user.Name, &user.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, usersEmailKey) {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by ID. Malformed ids are reported as not found.
func (s *UserStore) GetByID(ctx context.Context, q database.Querier, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}

	var user User
	err := q.QueryRow(ctx,
		`SELECT id, tenant_id, email, name, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.TenantID, &user.Email, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &user, nil
}

// ListByTenant returns the users of tenantID ordered by name.
func (s *UserStore) ListByTenant(ctx context.Context, q database.Querier, tenantID string) ([]UserSummary, error) {
	rows, err := q.Query(ctx,
		`SELECT id, name, email FROM users
		 WHERE tenant_id = $1
		 ORDER BY name, email`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
