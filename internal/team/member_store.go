package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/huddle-app/huddle/internal/tenant"
	"github.com/jackc/pgx/v5"
)

// MemberStore handles team membership rows.
type MemberStore struct{}

func NewMemberStore() *MemberStore {
	return &MemberStore{}
}

// Add records userID as a member of teamID. Adding an existing pair returns
// the existing row; the (team_id, user_id) unique constraint arbitrates races.
func (s *MemberStore) Add(ctx context.Context, q database.Querier, teamID, userID string) (*Member, bool, error) {
	var m Member
	err := q.QueryRow(ctx,
		`INSERT INTO team_members (team_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (team_id, user_id) DO NOTHING
		 RETURNING id, team_id, user_id, created_at`,
		teamID, userID,
	).Scan(&m.ID, &m.TeamID, &m.UserID, &m.CreatedAt)
	if err == nil {
		return &m, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("adding team member: %w", err)
	}

	// Conflict fired, the membership already exists.
	err = q.QueryRow(ctx,
		`SELECT id, team_id, user_id, created_at FROM team_members
		 WHERE team_id = $1 AND user_id = $2`,
		teamID, userID,
	).Scan(&m.ID, &m.TeamID, &m.UserID, &m.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("querying existing team member: %w", err)
	}
	return &m, false, nil
}

// Remove deletes a membership, returning ErrMemberNotFound if there was none.
func (s *MemberStore) Remove(ctx context.Context, q database.Querier, teamID, userID string) error {
	tag, err := q.Exec(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`,
		teamID, userID,
	)
	if err != nil {
		return fmt.Errorf("removing team member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ListSummaries returns the members of teamID who belong to tenantID.
func (s *MemberStore) ListSummaries(ctx context.Context, q database.Querier, teamID, tenantID string) ([]tenant.UserSummary, error) {
	rows, err := q.Query(ctx,
		`SELECT u.id, u.name, u.email
		 FROM team_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = $1 AND u.tenant_id = $2
		 ORDER BY m.created_at, u.name`,
		teamID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing team members: %w", err)
	}
	defer rows.Close()

	var members []tenant.UserSummary
	for rows.Next() {
		var u tenant.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scanning team member: %w", err)
		}
		members = append(members, u)
	}
	return members, rows.Err()
}
