package tenant

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler handles tenant HTTP endpoints.
type Handler struct {
	pool  *pgxpool.Pool
	store *Store
}

// NewHandler creates a new tenant handler.
func NewHandler(pool *pgxpool.Pool, store *Store) *Handler {
	return &Handler{pool: pool, store: store}
}

// HandleList returns all tenants. The route is public so the sign-up form can
// offer existing tenants.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.List(r.Context(), h.pool)
	if err != nil {
		slog.Error("listing tenants failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing tenants failed"})
		return
	}

	summaries := make([]Summary, 0, len(tenants))
	for _, t := range tenants {
		summaries = append(summaries, Summary{ID: t.ID, Name: t.Name})
	}

	writeJSON(w, http.StatusOK, summaries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
