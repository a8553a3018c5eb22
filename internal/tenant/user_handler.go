package tenant

import (
	"log/slog"
	"net/http"

	"github.com/huddle-app/huddle/internal/platform/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserHandler handles user HTTP endpoints within a tenant.
type UserHandler struct {
	pool  *pgxpool.Pool
	store *UserStore
}

// NewUserHandler creates a new user handler.
func NewUserHandler(pool *pgxpool.Pool, store *UserStore) *UserHandler {
	return &UserHandler{pool: pool, store: store}
}

// HandleList returns the users of the caller's tenant.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant context required"})
		return
	}

	users, err := h.store.ListByTenant(r.Context(), h.pool, tenantID)
	if err != nil {
		slog.Error("listing users failed", "error", err, "tenant_id", tenantID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing users failed"})
		return
	}

	if users == nil {
		users = []UserSummary{}
	}

	writeJSON(w, http.StatusOK, users)
}
