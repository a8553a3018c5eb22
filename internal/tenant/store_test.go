package tenant_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/huddle-app/huddle/internal/platform/middleware"
	"github.com/huddle-app/huddle/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*database.Pool, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("huddle_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = database.RunMigrations(connStr, "file://../../migrations")
	require.NoError(t, err)

	pool, err := database.Connect(ctx, connStr, 10)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup
}

func withTenantIdentity(req *http.Request, userID, tenantID string) *http.Request {
	identity := &auth.Identity{UserID: userID, TenantID: tenantID}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func wrapWithTenantCtx(h http.HandlerFunc) http.Handler {
	return middleware.TenantContext(h)
}

func TestStore_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := tenant.NewStore()
	ctx := context.Background()

	created, err := store.Create(ctx, pool, "Acme")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Acme", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetByID(ctx, pool, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = store.GetByID(ctx, pool, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

	_, err = store.GetByID(ctx, pool, "not-a-uuid")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}

func TestStore_NamesAreNotUnique(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := tenant.NewStore()
	ctx := context.Background()

	first, err := store.Create(ctx, pool, "Tenant for Sam")
	require.NoError(t, err)
	second, err := store.Create(ctx, pool, "Tenant for Sam")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStore_ListOrderedByName(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := tenant.NewStore()
	ctx := context.Background()

	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		_, err := store.Create(ctx, pool, name)
		require.NoError(t, err)
	}

	tenants, err := store.List(ctx, pool)
	require.NoError(t, err)
	require.Len(t, tenants, 3)
	assert.Equal(t, "Alpha", tenants[0].Name)
	assert.Equal(t, "Mid", tenants[1].Name)
	assert.Equal(t, "Zeta", tenants[2].Name)
}

func TestStore_FindOrCreateByName(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := tenant.NewStore()
	ctx := context.Background()

	var firstID string
	err := database.WithTenantTx(ctx, pool, "", func(ctx context.Context, q database.Querier) error {
		got, created, err := store.FindOrCreateByName(ctx, q, "Acme")
		require.NoError(t, err)
		assert.True(t, created)
		firstID = got.ID
		return nil
	})
	require.NoError(t, err)

	err = database.WithTenantTx(ctx, pool, "", func(ctx context.Context, q database.Querier) error {
		got, created, err := store.FindOrCreateByName(ctx, q, "Acme")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, firstID, got.ID)
		return nil
	})
	require.NoError(t, err)
}
