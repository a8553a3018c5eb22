package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/jackc/pgx/v5"
)

// CanUserAccessTeam reports whether userID may read or post in teamID: both
// must exist, belong to the same tenant, and the user must be a member.
// Malformed ids are denied; database faults are returned as errors.
func CanUserAccessTeam(ctx context.Context, q database.Querier, userID, teamID string) (bool, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return false, nil
	}
	if _, err := uuid.Parse(teamID); err != nil {
		return false, nil
	}

	var sameTenant, member bool
	err := q.QueryRow(ctx,
		`SELECT u.tenant_id = t.tenant_id,
		        EXISTS (SELECT 1 FROM team_members m WHERE m.team_id = t.id AND m.user_id = u.id)
		 FROM users u, teams t
		 WHERE u.id = $1 AND t.id = $2`,
		userID, teamID,
	).Scan(&sameTenant, &member)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking team access: %w", err)
	}
	return sameTenant && member, nil
}
