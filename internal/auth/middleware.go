package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// DevEmailHeader identifies the caller by email when dev mode is on.
const DevEmailHeader = "X-User-Email"

type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying identity.
// Exported so other packages can set identity in context for testing.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// Middleware returns HTTP middleware that validates JWT access tokens.
func Middleware(tokenSvc *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}
			serveWithToken(w, r, next, tokenSvc, token)
		})
	}
}

// MiddlewareWithDevMode behaves like Middleware but, when no Authorization
// header is present, resolves the caller from the X-User-Email header.
func MiddlewareWithDevMode(tokenSvc *TokenService, lookup IdentityLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				email := strings.ToLower(strings.TrimSpace(r.Header.Get(DevEmailHeader)))
				if email == "" {
					writeAuthError(w, http.StatusUnauthorized, "missing authorization header")
					return
				}

				identity, err := lookup.FindByEmail(r.Context(), email)
				if err != nil {
					if errors.Is(err, ErrUserNotFound) {
						writeAuthError(w, http.StatusUnauthorized, "unknown user")
						return
					}
					slog.Error("dev identity lookup failed", "error", err)
					writeAuthError(w, http.StatusInternalServerError, "identity lookup failed")
					return
				}
				identity.TokenType = tokenTypeAccess
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
				return
			}

			token, err := extractBearerToken(r)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}
			serveWithToken(w, r, next, tokenSvc, token)
		})
	}
}

func serveWithToken(w http.ResponseWriter, r *http.Request, next http.Handler, tokenSvc *TokenService, token string) {
	identity, err := tokenSvc.ValidateToken(token)
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	// Reject refresh tokens on non-refresh endpoints
	if identity.TokenType != tokenTypeAccess {
		writeAuthError(w, http.StatusUnauthorized, "access token required")
		return
	}

	next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
}

// GetIdentity retrieves the authenticated identity from the request context.
func GetIdentity(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*Identity)
	return identity
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return parts[1], nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
