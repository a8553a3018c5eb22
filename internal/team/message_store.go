package team

import (
	"context"
	"fmt"

	"github.com/huddle-app/huddle/internal/platform/database"
)

// MessageStore handles the append-only messages table.
type MessageStore struct{}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Create appends a message stamped with the database clock and returns it
// with its sender attached.
func (s *MessageStore) Create(ctx context.Context, q database.Querier, teamID, userID, content string) (*Message, error) {
	var m Message
	err := q.QueryRow(ctx,
		`WITH ins AS (
		     INSERT INTO messages (team_id, user_id, content, created_at)
		     VALUES ($1, $2, $3, now())
		     RETURNING id, team_id, user_id, content, created_at
		 )
		 SELECT ins.id, ins.team_id, ins.user_id, ins.content, ins.created_at,
		        u.id, u.name, u.email
		 FROM ins JOIN users u ON u.id = ins.user_id`,
		teamID, userID, content,
	).Scan(&m.ID, &m.TeamID, &m.UserID, &m.Content, &m.CreatedAt,
		&m.Sender.ID, &m.Sender.Name, &m.Sender.Email)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return &m, nil
}

// ListByTeam returns a team's messages oldest first.
func (s *MessageStore) ListByTeam(ctx context.Context, q database.Querier, teamID string) ([]Message, error) {
	rows, err := q.Query(ctx,
		`SELECT m.id, m.team_id, m.user_id, m.content, m.created_at,
		        u.id, u.name, u.email
		 FROM messages m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = $1
		 ORDER BY m.created_at, m.id`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Content, &m.CreatedAt,
			&m.Sender.ID, &m.Sender.Name, &m.Sender.Email); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
