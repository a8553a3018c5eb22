package team

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/huddle-app/huddle/internal/audit"
	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/huddle-app/huddle/internal/platform/middleware"
	"github.com/huddle-app/huddle/internal/stream"
	"github.com/huddle-app/huddle/internal/tenant"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service implements team, membership and messaging operations on behalf of
// an authenticated actor. All queries run with the actor's tenant set for RLS.
type Service struct {
	pool      *pgxpool.Pool
	teams     *Store
	members   *MemberStore
	messages  *MessageStore
	users     *tenant.UserStore
	publisher stream.Publisher
	auditLog  audit.Logger
}

func NewService(pool *pgxpool.Pool, users *tenant.UserStore, publisher stream.Publisher, auditLog audit.Logger) *Service {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Service{
		pool:      pool,
		teams:     NewStore(),
		members:   NewMemberStore(),
		messages:  NewMessageStore(),
		users:     users,
		publisher: publisher,
		auditLog:  auditLog,
	}
}

// CreateTeam creates a team in the actor's tenant and makes the actor its
// first member, atomically.
func (s *Service) CreateTeam(ctx context.Context, actor *auth.Identity, name string, description *string) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameEmpty
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if d == "" {
			description = nil
		} else {
			description = &d
		}
	}

	var t *Team
	err := database.WithTenantTx(ctx, s.pool, actor.TenantID, func(ctx context.Context, q database.Querier) error {
		var err error
		t, err = s.teams.Create(ctx, q, actor.TenantID, name, description)
		if err != nil {
			return err
		}
		_, _, err = s.members.Add(ctx, q, t.ID, actor.UserID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating team %q: %w", name, err)
	}

	s.record(ctx, actor, audit.ActionTeamCreated, t.ID, nil)
	return t, nil
}

// ListTeams returns every team in the actor's tenant with the actor's membership.
func (s *Service) ListTeams(ctx context.Context, actor *auth.Identity) ([]TeamWithMembership, error) {
	var teams []TeamWithMembership
	err := database.WithTenantConnection(ctx, s.pool, actor.TenantID, func(ctx context.Context, q database.Querier) error {
		var err error
		teams, err = s.teams.ListForUser(ctx, q, actor.TenantID, actor.UserID)
		return err
	})
	return teams, err
}

// AddTeamMember adds userID to teamID. The team must be in the actor's
// tenant and the actor a member of it; the target must be in the same tenant.
func (s *Service) AddTeamMember(ctx context.Context, actor *auth.Identity, teamID, userID string) (*Member, error) {
	var member *Member
	var created bool
	err := database.WithTenantConnection(ctx, s.pool, actor.TenantID, func(ctx context.Context, q database.Querier) error {
		t, err := s.teams.GetByID(ctx, q, teamID)
		if err != nil {
			return err
		}
		if t.TenantID != actor.TenantID {
			return ErrAccessDenied
		}
		if err := s.requireAccess(ctx, q, actor, teamID, "add_member"); err != nil {
			return err
		}

		target, err := s.users.GetByID(ctx, q, userID)
		if err != nil {
			return err
		}
		if target.TenantID != actor.TenantID {
			return ErrCrossTenant
		}

		member, created, err = s.members.Add(ctx, q, teamID, target.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.record(ctx, actor, audit.ActionTeamMemberAdded, teamID, map[string]any{
			audit.MetadataTargetUserID: member.UserID,
		})
	}
	return member, nil
}

// ListMembers returns the members of teamID who share the actor's tenant.
func (s *Service) ListMembers(ctx context.Context, actor *auth.Identity, teamID string) ([]tenant.UserSummary, error) {
	var members []tenant.UserSummary
	err := database.WithTenantConnection(ctx, s.pool, actor.TenantID, func(ctx context.Context, q database.Querier) error {
		if err := s.requireAccess(ctx, q, actor, teamID, "list_members"); err != nil {
			return err
		}
		var err error
		members, err = s.members.ListSummaries(ctx, q, teamID, actor.TenantID)
		return err
	})
	return members, err
}

// RemoveTeamMember deletes userID's membership in teamID.
func (s *Service) RemoveTeamMember(ctx context.Context, actor *auth.Identity, teamID, userID string) error {
	err := database.WithTenantConnection(ctx, s.pool, actor.TenantID, func(ctx context.Context, q database.Querier) error {
		if err := s.requireAccess(ctx, q, actor, teamID, "remove_member"); err != nil {
			return err
		}
		if _, err := uuid.Parse(userID); err != nil {
			return ErrMemberNotFound
		}
		return s.members.Remove(ctx, q, teamID, userID)
	})
	if err != nil {
		return err
	}

	s.record(ctx, actor, audit.ActionTeamMemberRemoved, teamID, map[string]any{
		audit.MetadataTargetUserID: userID,
	})
	return nil
}

// SendMessage appends content to teamID's feed and publishes it to stream
// subscribers. Content is validated before access is checked.
func (s *Service) SendMessage(ctx context.Context, actor *auth.Identity, teamID, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentEmpty
	}

	var msg *Message
	err := database.WithTenantConnection(ctx, s.pool, actor.TenantID, func(ctx context.Context, q database.Querier) error {
		if err := s.requireAccess(ctx, q, actor, teamID, "send_message"); err != nil {
			return err
		}
		var err error
		msg, err = s.messages.Create(ctx, q, teamID, actor.UserID, content)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, audit.ActionMessageSent, teamID, map[string]any{
		audit.MetadataContentLength: len(content),
	})

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, msg.Event()); err != nil {
			// The message is stored; live subscribers will see it on their next read.
			slog.Warn("publishing message event failed", "error", err, "team_id", teamID, "message_id", msg.ID)
		}
	}
	return msg, nil
}

// ListMessages returns teamID's messages oldest first.
func (s *Service) ListMessages(ctx context.Context, actor *auth.Identity, teamID string) ([]Message, error) {
	var messages []Message
	err := database.WithTenantConnection(ctx, s.pool, actor.TenantID, func(ctx context.Context, q database.Querier) error {
		if err := s.requireAccess(ctx, q, actor, teamID, "list_messages"); err != nil {
			return err
		}
		var err error
		messages, err = s.messages.ListByTeam(ctx, q, teamID)
		return err
	})
	return messages, err
}

// AuthorizeStream checks that the actor may subscribe to teamID's live feed.
func (s *Service) AuthorizeStream(ctx context.Context, actor *auth.Identity, teamID string) error {
	return database.WithTenantConnection(ctx, s.pool, actor.TenantID, func(ctx context.Context, q database.Querier) error {
		ok, err := CanUserAccessTeam(ctx, q, actor.UserID, teamID)
		if err != nil {
			return err
		}
		if !ok {
			s.recordFrom(ctx, actor, audit.SourceStream, audit.ActionAccessDenied, teamID, map[string]any{
				audit.MetadataOperation: "subscribe",
			})
			return ErrAccessDenied
		}
		return nil
	})
}

func (s *Service) requireAccess(ctx context.Context, q database.Querier, actor *auth.Identity, teamID, operation string) error {
	ok, err := CanUserAccessTeam(ctx, q, actor.UserID, teamID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	s.record(ctx, actor, audit.ActionAccessDenied, teamID, map[string]any{
		audit.MetadataOperation: operation,
	})
	return ErrAccessDenied
}

func (s *Service) record(ctx context.Context, actor *auth.Identity, action, teamID string, metadata map[string]any) {
	s.recordFrom(ctx, actor, audit.SourceAPI, action, teamID, metadata)
}

func (s *Service) recordFrom(ctx context.Context, actor *auth.Identity, source, action, teamID string, metadata map[string]any) {
	e, ok := audit.NewEvent(ctx, actor.TenantID, action, audit.ResourceTeam, teamID)
	if !ok {
		return
	}
	e.UserID = audit.ParseID(actor.UserID)
	e.Source = source
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[audit.MetadataRequestID] = reqID
	}
	e.Metadata = metadata
	s.auditLog.Log(ctx, e)
}
