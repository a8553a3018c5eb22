package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/jackc/pgx/v5"
)

const teamColumns = "id, tenant_id, name, description, created_at, updated_at"

// Store handles team database operations.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func scanTeam(row pgx.Row, t *Team, extra ...any) error {
	return row.Scan(append([]any{&t.ID, &t.TenantID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt}, extra...)...)
}

// Create inserts a team into tenantID.
func (s *Store) Create(ctx context.Context, q database.Querier, tenantID, name string, description *string) (*Team, error) {
	var t Team
	err := scanTeam(q.QueryRow(ctx,
		`INSERT INTO teams (tenant_id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING `+teamColumns,
		tenantID, name, description,
	), &t)
	if err != nil {
		return nil, fmt.Errorf("creating team: %w", err)
	}
	return &t, nil
}

// GetByID retrieves a team. Malformed ids are reported as not found.
func (s *Store) GetByID(ctx context.Context, q database.Querier, id string) (*Team, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTeamNotFound
	}

	var t Team
	err := scanTeam(q.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id,
	), &t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return &t, nil
}

// ListForUser returns every team of tenantID, flagged with userID's membership.
func (s *Store) ListForUser(ctx context.Context, q database.Querier, tenantID, userID string) ([]TeamWithMembership, error) {
	rows, err := q.Query(ctx,
		`SELECT t.id, t.tenant_id, t.name, t.description, t.created_at, t.updated_at,
		        m.id IS NOT NULL AS is_member
		 FROM teams t
		 LEFT JOIN team_members m ON m.team_id = t.id AND m.user_id = $2
		 WHERE t.tenant_id = $1
		 ORDER BY t.name, t.created_at`,
		tenantID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var teams []TeamWithMembership
	for rows.Next() {
		var t TeamWithMembership
		if err := scanTeam(rows, &t.Team, &t.IsMember); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}
