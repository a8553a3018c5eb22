package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/huddle-app/huddle/internal/auth"
)

type tenantContextKey struct{}

// TenantContext copies the authenticated identity's tenant into the request
// context, where stores pick it up for RLS. Every authenticated huddle
// identity belongs to a tenant; one without is refused.
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := auth.GetIdentity(r.Context())
		if identity == nil {
			next.ServeHTTP(w, r)
			return
		}
		if identity.TenantID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "tenant context required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithTenantID(r.Context(), identity.TenantID)))
	})
}

// WithTenantID stores tenantID for GetTenantID. Handlers outside the
// protected chain (the message stream) use it after authenticating.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// GetTenantID retrieves the tenant ID from the request context.
func GetTenantID(ctx context.Context) string {
	if id, ok := ctx.Value(tenantContextKey{}).(string); ok {
		return id
	}
	return ""
}
