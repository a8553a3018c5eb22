package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/platform/middleware"
	"github.com/huddle-app/huddle/internal/team"
	"github.com/huddle-app/huddle/internal/tenant"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds all injected dependencies for the server.
type Dependencies struct {
	Pool          *pgxpool.Pool
	Auth          *auth.TokenService
	AuthHandler   *auth.Handler
	TenantHandler *tenant.Handler
	UserHandler   *tenant.UserHandler
	TeamHandler   *team.Handler
	StreamHandler *team.StreamHandler
	// AuthRateLimit wraps login and register when set.
	AuthRateLimit      func(http.Handler) http.Handler
	DevMode            bool
	IdentityLookup     auth.IdentityLookup
	Logger             *slog.Logger
	CORSAllowedOrigins []string
}

type Server struct {
	httpServer *http.Server
	pool       *pgxpool.Pool
	handler    http.Handler
}

func New(addr string, deps Dependencies) *Server {
	// Protected routes mux, wrapped with auth middleware
	protectedMux := http.NewServeMux()

	var protectedHandler http.Handler = protectedMux
	protectedHandler = middleware.TenantContext(protectedHandler)
	if deps.Auth != nil {
		if deps.DevMode && deps.IdentityLookup != nil {
			protectedHandler = auth.MiddlewareWithDevMode(deps.Auth, deps.IdentityLookup)(protectedHandler)
		} else {
			protectedHandler = auth.Middleware(deps.Auth)(protectedHandler)
		}
	}

	// Top-level mux: public routes + protected catch-all
	topMux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		pool: deps.Pool,
	}

	// Public routes (no auth required)
	topMux.HandleFunc("GET /healthz", s.handleHealth)
	topMux.HandleFunc("GET /readyz", s.handleReadiness)

	if deps.AuthHandler != nil {
		limit := deps.AuthRateLimit
		if limit == nil {
			limit = func(next http.Handler) http.Handler { return next }
		}
		topMux.Handle("POST /api/auth/login", limit(http.HandlerFunc(deps.AuthHandler.HandleLogin)))
		topMux.Handle("POST /api/auth/register", limit(http.HandlerFunc(deps.AuthHandler.HandleRegister)))
		topMux.HandleFunc("POST /api/auth/token/refresh", deps.AuthHandler.HandleRefresh)
	}
	if deps.TenantHandler != nil {
		topMux.HandleFunc("GET /api/tenants", deps.TenantHandler.HandleList)
	}
	// The stream authenticates with a query token, not the Authorization header.
	if deps.StreamHandler != nil {
		topMux.HandleFunc("GET /api/teams/{id}/messages/stream", deps.StreamHandler.HandleStream)
	}

	if deps.UserHandler != nil {
		protectedMux.HandleFunc("GET /api/users", deps.UserHandler.HandleList)
	}

	if deps.TeamHandler != nil {
		protectedMux.HandleFunc("GET /api/teams", deps.TeamHandler.HandleList)
		protectedMux.HandleFunc("POST /api/teams", deps.TeamHandler.HandleCreate)
		protectedMux.HandleFunc("GET /api/teams/{id}/members", deps.TeamHandler.HandleListMembers)
		protectedMux.HandleFunc("POST /api/teams/{id}/members", deps.TeamHandler.HandleAddMember)
		protectedMux.HandleFunc("DELETE /api/teams/{id}/members/{userId}", deps.TeamHandler.HandleRemoveMember)
		protectedMux.HandleFunc("GET /api/teams/{id}/messages", deps.TeamHandler.HandleListMessages)
		protectedMux.HandleFunc("POST /api/teams/{id}/messages", deps.TeamHandler.HandleSendMessage)
	}

	// All other routes go through auth middleware
	topMux.Handle("/", protectedHandler)

	// Wrap top-level mux with observability middleware
	var handler http.Handler = topMux
	if deps.Logger != nil {
		handler = middleware.Logging(deps.Logger)(handler)
	}
	handler = middleware.RequestID(handler)
	if len(deps.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(deps.CORSAllowedOrigins)(handler)
	}

	s.handler = handler
	s.httpServer.Handler = handler
	return s
}

// Handler returns the full middleware-wrapped handler chain (for testing).
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	slog.Info("server starting", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.pool == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database not connected",
		})
		return
	}

	if err := s.pool.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
