package team

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/platform/middleware"
	"github.com/huddle-app/huddle/internal/stream"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// StreamAuthorizer decides whether an identity may follow a team's feed.
type StreamAuthorizer interface {
	AuthorizeStream(ctx context.Context, actor *auth.Identity, teamID string) error
}

// StreamHandler pushes a team's new messages to WebSocket clients.
type StreamHandler struct {
	tokenSvc       *auth.TokenService
	authz          StreamAuthorizer
	hub            *stream.Hub
	originPatterns []string
}

// NewStreamHandler accepts cross-origin upgrades from allowedOrigins, given
// in the same scheme://host[:port] form as the CORS allow-list.
func NewStreamHandler(tokenSvc *auth.TokenService, authz StreamAuthorizer, hub *stream.Hub, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		tokenSvc:       tokenSvc,
		authz:          authz,
		hub:            hub,
		originPatterns: originPatterns(allowedOrigins),
	}
}

// originPatterns reduces origins to the host[:port] patterns that
// websocket.AcceptOptions matches the Origin header against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}

// HandleStream upgrades to a WebSocket carrying {type:"message"} frames.
// The token travels in the access_token query parameter because browsers
// cannot set headers on the upgrade request.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	teamID := r.PathValue("id")

	rawToken := r.URL.Query().Get("access_token")
	if rawToken == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing access_token"})
		return
	}
	identity, err := h.tokenSvc.ValidateAccessToken(rawToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
		} else {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}
		return
	}

	ctx := auth.WithIdentity(r.Context(), identity)
	ctx = middleware.WithTenantID(ctx, identity.TenantID)
	if err := h.authz.AuthorizeStream(ctx, identity, teamID); err != nil {
		writeServiceError(w, err, "authorizing stream failed")
		return
	}

	opts := &websocket.AcceptOptions{}
	if len(h.originPatterns) > 0 {
		opts.OriginPatterns = h.originPatterns
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err, "team_id", teamID)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// Long-lived connection; the server's WriteTimeout must not apply.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sub := h.hub.Subscribe(teamID)
	defer sub.Close()

	slog.Debug("stream subscribed", "team_id", teamID, "user_id", identity.UserID)

	// Clients only listen; CloseRead handles control frames and cancels
	// ctx when the peer goes away.
	ctx = conn.CloseRead(ctx)
	h.pump(ctx, conn, sub)
}

func (h *StreamHandler) pump(ctx context.Context, conn *websocket.Conn, sub *stream.Subscription) {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Events():
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := wsjson.Write(writeCtx, conn, stream.Envelope{Type: stream.EventTypeMessage, Message: evt})
			cancel()
			if err != nil {
				slog.Debug("stream write failed", "error", err, "team_id", evt.TeamID)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
