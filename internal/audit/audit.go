package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/huddle-app/huddle/internal/auth"
)

// Event represents a single auditable action in the system.
type Event struct {
	TenantID     uuid.UUID
	UserID       *uuid.UUID // nil for system events
	Action       string     // e.g. "message.sent", "access.denied"
	ResourceType string     // e.g. "team", "user", "tenant"
	ResourceID   *uuid.UUID
	Metadata     map[string]any
	Source       string // "api", "stream", "system"
}

const (
	ActionTenantCreated     = "tenant.created"
	ActionUserRegistered    = "user.registered"
	ActionTeamCreated       = "team.created"
	ActionTeamMemberAdded   = "team.member_added"
	ActionTeamMemberRemoved = "team.member_removed"
	ActionMessageSent       = "message.sent"
	ActionAccessDenied      = "access.denied"
)

const (
	ResourceTenant = "tenant"
	ResourceUser   = "user"
	ResourceTeam   = "team"
)

const (
	SourceAPI    = "api"
	SourceStream = "stream"
)

const (
	MetadataOperation     = "operation"
	MetadataTargetUserID  = "target_user_id"
	MetadataContentLength = "content_length"
	MetadataRequestID     = "request_id"
)

// Logger is the audit logging interface. Log is fire-and-forget.
type Logger interface {
	Log(ctx context.Context, event Event)
	Close() error
}

// NopLogger is a no-op audit logger for testing and when audit is disabled.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}
func (NopLogger) Close() error               { return nil }

// ActorIDFromContext extracts the authenticated user's UUID from the
// request context, returning nil if no identity is present or the
// user ID is not a valid UUID.
func ActorIDFromContext(ctx context.Context) *uuid.UUID {
	identity := auth.GetIdentity(ctx)
	if identity == nil {
		return nil
	}
	return ParseID(identity.UserID)
}

// ParseID parses id as a UUID, returning nil when it is not one.
func ParseID(id string) *uuid.UUID {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	return &parsed
}

// NewEvent builds an API-sourced event for the caller in ctx. Events whose
// tenant is not a valid UUID are returned with ok=false and must not be logged.
func NewEvent(ctx context.Context, tenantID, action, resourceType, resourceID string) (Event, bool) {
	tid := ParseID(tenantID)
	if tid == nil {
		return Event{}, false
	}
	return Event{
		TenantID:     *tid,
		UserID:       ActorIDFromContext(ctx),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   ParseID(resourceID),
		Source:       SourceAPI,
	}, true
}
