// Package proxy routes tenant-scoped chat traffic to the session's
// conversational agent. It is stateless: every request independently
// resolves its agent, and the response (streamed bodies included) passes
// through the caller's ResponseWriter without extra buffering.
package proxy

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/pkg/utils"
)

// routingFailedMessage is the fixed payload for any resolution failure;
// internal detail is only logged.
const routingFailedMessage = "Agent routing failed"

// AgentResolver locates or creates the conversational agent for a session.
type AgentResolver interface {
	Resolve(ctx context.Context, sessionID string) (http.Handler, error)
}

// Handler forwards any method under /api/chat/{sessionID}/* with the
// tenant prefix stripped.
type Handler struct {
	agents AgentResolver
	logger *zap.Logger
}

// New builds a proxy over the given resolver.
func New(agents AgentResolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{agents: agents, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusInternalServerError, routingFailedMessage)
		return
	}

	target, err := h.agents.Resolve(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("agent routing error",
			zap.String("session", sessionID),
			zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, routingFailedMessage)
		return
	}

	// Clone keeps the original body as an unconsumed stream; large uploads
	// are never materialized here. Cancellation propagates through the
	// request context when the caller disconnects.
	out := r.Clone(r.Context())
	out.URL.Path = strippedPath(r.URL.Path, sessionID)
	out.URL.RawPath = ""
	out.RequestURI = ""
	out.Header.Set("X-Original-Url", originalURL(r))
	if r.Method == http.MethodGet || r.Method == http.MethodDelete {
		out.Body = http.NoBody
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("agent panicked",
				zap.String("session", sessionID),
				zap.Any("panic", rec))
			utils.RespondError(w, http.StatusInternalServerError, routingFailedMessage)
		}
	}()
	target.ServeHTTP(w, out)
}

// strippedPath removes the tenant prefix, leaving the agent-local path.
func strippedPath(path, sessionID string) string {
	prefix := "/api/chat/" + sessionID
	stripped := strings.TrimPrefix(path, prefix)
	if !strings.HasPrefix(stripped, "/") {
		stripped = "/" + stripped
	}
	return stripped
}

// originalURL reconstructs the absolute pre-rewrite URL so agents can
// build links back to themselves.
func originalURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
