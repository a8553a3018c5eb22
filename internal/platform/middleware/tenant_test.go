package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/platform/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLookup map[string]*auth.Identity

func (l staticLookup) FindByEmail(_ context.Context, email string) (*auth.Identity, error) {
	if id, ok := l[email]; ok {
		copied := *id
		return &copied, nil
	}
	return nil, auth.ErrUserNotFound
}

func (l staticLookup) FindByID(_ context.Context, userID string) (*auth.Identity, error) {
	for _, id := range l {
		if id.UserID == userID {
			copied := *id
			return &copied, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

// usersEndpoint stands in for GET /api/users and reports the tenant it saw.
func usersEndpoint(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = middleware.GetTenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestTenantContext_FromBearerToken(t *testing.T) {
	tokenSvc := auth.NewTokenService("test-signing-key-must-be-32-chars!!", "huddle", 24, 168)
	token, err := tokenSvc.CreateAccessToken(&auth.Identity{UserID: "user-1", TenantID: "tenant-acme"})
	require.NoError(t, err)

	var gotTenant string
	handler := auth.Middleware(tokenSvc)(middleware.TenantContext(usersEndpoint(&gotTenant)))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant-acme", gotTenant)
}

func TestTenantContext_FromDevEmailHeader(t *testing.T) {
	tokenSvc := auth.NewTokenService("test-signing-key-must-be-32-chars!!", "huddle", 24, 168)
	lookup := staticLookup{
		"bob@globex.test": {UserID: "user-2", TenantID: "tenant-globex", Email: "bob@globex.test"},
	}

	var gotTenant string
	handler := auth.MiddlewareWithDevMode(tokenSvc, lookup)(middleware.TenantContext(usersEndpoint(&gotTenant)))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(auth.DevEmailHeader, "Bob@Globex.test")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant-globex", gotTenant)
}

func TestTenantContext_IdentityWithoutTenant(t *testing.T) {
	var gotTenant string
	called := false
	handler := middleware.TenantContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		usersEndpoint(&gotTenant).ServeHTTP(w, r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: "user-1"}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called)
	assert.JSONEq(t, `{"error":"tenant context required"}`, w.Body.String())
}

func TestTenantContext_NoIdentityPassesThrough(t *testing.T) {
	gotTenant := "unset"
	handler := middleware.TenantContext(usersEndpoint(&gotTenant))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tenants", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, gotTenant)
}

func TestWithTenantID(t *testing.T) {
	ctx := middleware.WithTenantID(context.Background(), "tenant-9")
	assert.Equal(t, "tenant-9", middleware.GetTenantID(ctx))
	assert.Empty(t, middleware.GetTenantID(context.Background()))
}
