package team

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/tenant"
)

// Handler handles team HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new team handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// HandleList returns the caller's tenant teams with membership flags.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetIdentity(r.Context())
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	teams, err := h.svc.ListTeams(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err, "listing teams failed")
		return
	}
	if teams == nil {
		teams = []TeamWithMembership{}
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleCreate creates a team with the caller as its first member.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetIdentity(r.Context())
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<10)
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	t, err := h.svc.CreateTeam(r.Context(), actor, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err, "creating team failed")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleAddMember adds a user of the caller's tenant to the team.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetIdentity(r.Context())
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<10)
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	teamID := r.PathValue("id")
	userID := strings.TrimSpace(req.UserID)
	if teamID == "" || userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "team id and userId are required"})
		return
	}

	member, err := h.svc.AddTeamMember(r.Context(), actor, teamID, userID)
	if err != nil {
		writeServiceError(w, err, "adding team member failed")
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// HandleListMembers returns the team's members.
func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetIdentity(r.Context())
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	members, err := h.svc.ListMembers(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "listing team members failed")
		return
	}
	if members == nil {
		members = []tenant.UserSummary{}
	}
	writeJSON(w, http.StatusOK, members)
}

// HandleRemoveMember removes a user from the team.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetIdentity(r.Context())
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	err := h.svc.RemoveTeamMember(r.Context(), actor, r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		writeServiceError(w, err, "removing team member failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListMessages returns the team's messages oldest first.
func (h *Handler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetIdentity(r.Context())
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	messages, err := h.svc.ListMessages(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "listing messages failed")
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// HandleSendMessage posts a message to the team.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetIdentity(r.Context())
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	msg, err := h.svc.SendMessage(r.Context(), actor, r.PathValue("id"), req.Content)
	if err != nil {
		writeServiceError(w, err, "sending message failed")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrTeamNameEmpty), errors.Is(err, ErrContentEmpty):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrCrossTenant):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrTeamNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "team not found"})
	case errors.Is(err, tenant.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
	case errors.Is(err, ErrMemberNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "team member not found"})
	default:
		slog.Error(fallback, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fallback})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
