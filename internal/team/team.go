// Package team implements teams, their membership and their message feed.
// Every read or write of a team's messages or members goes through
// CanUserAccessTeam.
package team

import (
	"errors"
	"time"

	"github.com/huddle-app/huddle/internal/stream"
)

var (
	ErrTeamNotFound   = errors.New("team not found")
	ErrTeamNameEmpty  = errors.New("team name is required")
	ErrContentEmpty   = errors.New("message content is required")
	ErrAccessDenied   = errors.New("access denied")
	ErrCrossTenant    = errors.New("cannot add user from different tenant")
	ErrMemberNotFound = errors.New("team member not found")
)

// Team represents a team within a tenant.
type Team struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TeamWithMembership is a team annotated with whether the caller belongs to it.
type TeamWithMembership struct {
	Team
	IsMember bool `json:"isMember"`
}

// Member is a team membership row.
type Member struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sender is the author summary attached to each message.
type Sender struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is an append-only entry in a team's feed.
type Message struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Sender    Sender    `json:"sender"`
}

// Event converts m into the form pushed to stream subscribers.
func (m *Message) Event() stream.MessageEvent {
	return stream.MessageEvent{
		ID:        m.ID,
		TeamID:    m.TeamID,
		UserID:    m.UserID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Sender: stream.Sender{
			ID:    m.Sender.ID,
			Name:  m.Sender.Name,
			Email: m.Sender.Email,
		},
	}
}
