package team_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/huddle-app/huddle/internal/audit"
	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/stream"
	"github.com/huddle-app/huddle/internal/team"
	"github.com/huddle-app/huddle/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	mu     sync.Mutex
	events []audit.Event
}

func (l *captureLogger) Log(_ context.Context, e audit.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *captureLogger) Close() error { return nil }

func (l *captureLogger) Last() audit.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return audit.Event{}
	}
	return l.events[len(l.events)-1]
}

type capturePublisher struct {
	mu     sync.Mutex
	events []stream.MessageEvent
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, evt stream.MessageEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *capturePublisher) Events() []stream.MessageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]stream.MessageEvent(nil), p.events...)
}

func TestService_ValidationBeforeDatabase(t *testing.T) {
	svc := team.NewService(nil, tenant.NewUserStore(), nil, nil)
	actor := &auth.Identity{UserID: "u", TenantID: "t"}

	_, err := svc.SendMessage(context.Background(), actor, "team-1", "   ")
	assert.ErrorIs(t, err, team.ErrContentEmpty)

	_, err = svc.CreateTeam(context.Background(), actor, "  ", nil)
	assert.ErrorIs(t, err, team.ErrTeamNameEmpty)
}

func TestService(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	acme := seedTenant(t, pool, "Acme")
	globex := seedTenant(t, pool, "Globex")
	alice := seedUser(t, pool, acme, "alice@acme.test", "Alice")
	bob := seedUser(t, pool, acme, "bob@acme.test", "Bob")
	eve := seedUser(t, pool, globex, "eve@globex.test", "Eve")

	logger := &captureLogger{}
	pub := &capturePublisher{}
	svc := team.NewService(pool, tenant.NewUserStore(), pub, logger)

	eng, err := svc.CreateTeam(ctx, alice, "Engineering", nil)
	require.NoError(t, err)
	assert.Equal(t, acme, eng.TenantID)
	assert.Equal(t, audit.ActionTeamCreated, logger.Last().Action)

	globexTeam, err := svc.CreateTeam(ctx, eve, "Sales", nil)
	require.NoError(t, err)

	t.Run("creator is a member", func(t *testing.T) {
		ok, err := team.CanUserAccessTeam(ctx, pool, alice.UserID, eng.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("list teams flags membership", func(t *testing.T) {
		teams, err := svc.ListTeams(ctx, bob)
		require.NoError(t, err)
		require.Len(t, teams, 1)
		assert.Equal(t, eng.ID, teams[0].ID)
		assert.False(t, teams[0].IsMember)

		teams, err = svc.ListTeams(ctx, eve)
		require.NoError(t, err)
		require.Len(t, teams, 1)
		assert.Equal(t, "Sales", teams[0].Name)
	})

	t.Run("non-member cannot send", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, bob, eng.ID, "hi")
		assert.ErrorIs(t, err, team.ErrAccessDenied)

		denied := logger.Last()
		assert.Equal(t, audit.ActionAccessDenied, denied.Action)
		assert.Equal(t, "send_message", denied.Metadata[audit.MetadataOperation])
	})

	t.Run("other tenant cannot send", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, eve, eng.ID, "x")
		assert.ErrorIs(t, err, team.ErrAccessDenied)

		denied := logger.Last()
		assert.Equal(t, audit.ActionAccessDenied, denied.Action)
		assert.Equal(t, globex, denied.TenantID.String())

		var n int
		require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM messages WHERE team_id = $1", eng.ID).Scan(&n))
		assert.Zero(t, n)
	})

	t.Run("empty content wins over access", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, eve, eng.ID, "")
		assert.ErrorIs(t, err, team.ErrContentEmpty)
	})

	t.Run("add member checks", func(t *testing.T) {
		_, err := svc.AddTeamMember(ctx, alice, "00000000-0000-0000-0000-000000000000", bob.UserID)
		assert.ErrorIs(t, err, team.ErrTeamNotFound)

		_, err = svc.AddTeamMember(ctx, alice, globexTeam.ID, bob.UserID)
		assert.True(t, errors.Is(err, team.ErrAccessDenied) || errors.Is(err, team.ErrTeamNotFound))

		_, err = svc.AddTeamMember(ctx, bob, eng.ID, bob.UserID)
		assert.ErrorIs(t, err, team.ErrAccessDenied)

		_, err = svc.AddTeamMember(ctx, alice, eng.ID, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, tenant.ErrUserNotFound)

		_, err = svc.AddTeamMember(ctx, alice, eng.ID, eve.UserID)
		assert.ErrorIs(t, err, team.ErrCrossTenant)
	})

	t.Run("access flips after add", func(t *testing.T) {
		m, err := svc.AddTeamMember(ctx, alice, eng.ID, bob.UserID)
		require.NoError(t, err)
		assert.Equal(t, bob.UserID, m.UserID)
		assert.Equal(t, audit.ActionTeamMemberAdded, logger.Last().Action)

		again, err := svc.AddTeamMember(ctx, alice, eng.ID, bob.UserID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, again.ID)

		msg, err := svc.SendMessage(ctx, bob, eng.ID, "hello team")
		require.NoError(t, err)
		assert.Equal(t, "Bob", msg.Sender.Name)

		events := pub.Events()
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, msg.ID, last.ID)
		assert.Equal(t, eng.ID, last.TeamID)
		assert.Equal(t, "bob@acme.test", last.Sender.Email)
	})

	t.Run("members and messages", func(t *testing.T) {
		members, err := svc.ListMembers(ctx, alice, eng.ID)
		require.NoError(t, err)
		assert.Len(t, members, 2)

		_, err = svc.SendMessage(ctx, alice, eng.ID, "welcome bob")
		require.NoError(t, err)

		msgs, err := svc.ListMessages(ctx, bob, eng.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "hello team", msgs[0].Content)
		assert.Equal(t, "welcome bob", msgs[1].Content)

		_, err = svc.ListMessages(ctx, eve, eng.ID)
		assert.ErrorIs(t, err, team.ErrAccessDenied)
		_, err = svc.ListMembers(ctx, eve, eng.ID)
		assert.ErrorIs(t, err, team.ErrAccessDenied)
	})

	t.Run("publish failure keeps the message", func(t *testing.T) {
		failing := &capturePublisher{err: errors.New("broker down")}
		svc := team.NewService(pool, tenant.NewUserStore(), failing, nil)
		msg, err := svc.SendMessage(ctx, alice, eng.ID, "still stored")
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
	})

	t.Run("remove member", func(t *testing.T) {
		require.NoError(t, svc.RemoveTeamMember(ctx, alice, eng.ID, bob.UserID))
		assert.Equal(t, audit.ActionTeamMemberRemoved, logger.Last().Action)

		err := svc.RemoveTeamMember(ctx, alice, eng.ID, bob.UserID)
		assert.ErrorIs(t, err, team.ErrMemberNotFound)

		_, err = svc.SendMessage(ctx, bob, eng.ID, "am I still here?")
		assert.ErrorIs(t, err, team.ErrAccessDenied)
	})

	t.Run("stream authorization", func(t *testing.T) {
		assert.NoError(t, svc.AuthorizeStream(ctx, alice, eng.ID))
		assert.ErrorIs(t, svc.AuthorizeStream(ctx, eve, eng.ID), team.ErrAccessDenied)
		assert.Equal(t, audit.SourceStream, logger.Last().Source)
	})
}
