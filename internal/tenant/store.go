package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/jackc/pgx/v5"
)

// Store handles tenant database operations.
type Store struct{}

// NewStore creates a new tenant store.
func NewStore() *Store {
	return &Store{}
}

// Create inserts a new tenant.
func (s *Store) Create(ctx context.Context, q database.Querier, name string) (*Tenant, error) {
	var t Tenant
	err := q.QueryRow(ctx,
		`INSERT INTO tenants (name) VALUES ($1)
		 RETURNING id, name, created_at`,
		name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating tenant: %w", err)
	}
	return &t, nil
}

// GetByID retrieves a tenant by its UUID. Malformed ids are reported as not found.
func (s *Store) GetByID(ctx context.Context, q database.Querier, id string) (*Tenant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTenantNotFound
	}

	var t Tenant
	err := q.QueryRow(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("getting tenant: %w", err)
	}
	return &t, nil
}

// FindOrCreateByName returns the oldest tenant with the given name, creating
// it if none exists. q must be a transaction: the advisory lock is held until
// it ends, so concurrent callers with the same name create one tenant.
func (s *Store) FindOrCreateByName(ctx context.Context, q database.Querier, name string) (*Tenant, bool, error) {
	if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext('tenant-name:' || $1))", name); err != nil {
		return nil, false, fmt.Errorf("locking tenant name: %w", err)
	}

	var t Tenant
	err := q.QueryRow(ctx,
		`SELECT id, name, created_at FROM tenants
		 WHERE name = $1
		 ORDER BY created_at, id
		 LIMIT 1`,
		name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == nil {
		return &t, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("finding tenant by name: %w", err)
	}

	created, err := s.Create(ctx, q, name)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// List returns all tenants ordered by name.
func (s *Store) List(ctx context.Context, q database.Querier) ([]Tenant, error) {
	rows, err := q.Query(ctx,
		`SELECT id, name, created_at FROM tenants ORDER BY name, created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
