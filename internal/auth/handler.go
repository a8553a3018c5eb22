package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
)

// Handler handles authentication HTTP endpoints.
type Handler struct {
	tokenSvc  *TokenService
	lookup    IdentityLookup
	registrar Registrar
}

func NewHandler(tokenSvc *TokenService, lookup IdentityLookup, registrar Registrar) *Handler {
	return &Handler{
		tokenSvc:  tokenSvc,
		lookup:    lookup,
		registrar: registrar,
	}
}

type sessionResponse struct {
	UserID       string `json:"userId"`
	TenantID     string `json:"tenantId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

// HandleLogin resolves an email to a user and issues a token pair.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<10)

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	email := normalizeEmail(req.Email)
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	identity, err := h.lookup.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		slog.Error("login lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}

	h.writeSession(w, http.StatusOK, identity)
}

// HandleRegister creates a user (and tenant when needed) and issues a token pair.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<10)

	var req struct {
		Email      string `json:"email"`
		Name       string `json:"name"`
		TenantID   string `json:"tenantId"`
		TenantName string `json:"tenantName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params := RegisterParams{
		Email:      normalizeEmail(req.Email),
		Name:       strings.TrimSpace(req.Name),
		TenantID:   strings.TrimSpace(req.TenantID),
		TenantName: strings.TrimSpace(req.TenantName),
	}
	if params.Email == "" || params.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and name are required"})
		return
	}
	if !validEmail(params.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
		return
	}

	identity, err := h.registrar.Register(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		case errors.Is(err, ErrTenantNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "tenant not found"})
		default:
			slog.Error("registration failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "registration failed"})
		}
		return
	}

	h.writeSession(w, http.StatusCreated, identity)
}

// HandleRefresh exchanges a refresh token for new access + refresh tokens.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<10)

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "refreshToken is required"})
		return
	}

	claimed, err := h.tokenSvc.ValidateToken(req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}
	if claimed.TokenType != tokenTypeRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "refresh token required"})
		return
	}

	// Reload so a deleted user cannot keep refreshing.
	identity, err := h.lookup.FindByID(r.Context(), claimed.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
			return
		}
		slog.Error("refresh lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token refresh failed"})
		return
	}

	accessToken, refreshToken, err := h.issuePair(identity)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token creation failed"})
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, identity *Identity) {
	accessToken, refreshToken, err := h.issuePair(identity)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token creation failed"})
		return
	}

	writeJSON(w, status, sessionResponse{
		UserID:       identity.UserID,
		TenantID:     identity.TenantID,
		Name:         identity.Name,
		Email:        identity.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}

func (h *Handler) issuePair(identity *Identity) (string, string, error) {
	accessToken, err := h.tokenSvc.CreateAccessToken(identity)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := h.tokenSvc.CreateRefreshToken(identity)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare address only, no display name.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
