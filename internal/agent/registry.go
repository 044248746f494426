package agent

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/internal/controller"
	"github.com/atelierhq/atelier/backend/internal/tools"
)

// Registry resolves the conversational agent for a session id, creating
// one on first use. Each agent lives for the process lifetime.
type Registry struct {
	mu           sync.Mutex
	agents       map[string]*Agent
	llm          *LLM
	tools        *tools.Dispatcher
	sessions     *controller.Controller
	defaultModel string
	logger       *zap.Logger
}

// NewRegistry wires the shared agent dependencies. llm may be nil;
// sessions may be nil when no actor should be notified of activity.
func NewRegistry(llm *LLM, dispatcher *tools.Dispatcher, sessions *controller.Controller, defaultModel string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		agents:       make(map[string]*Agent),
		llm:          llm,
		tools:        dispatcher,
		sessions:     sessions,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Resolve returns the agent for a session, creating it if needed, and
// bumps the session's lastActive through the actor.
func (r *Registry) Resolve(ctx context.Context, sessionID string) (http.Handler, error) {
	r.mu.Lock()
	a, ok := r.agents[sessionID]
	if !ok {
		a = New(sessionID, r.llm, r.tools, r.defaultModel, r.logger.With(zap.String("session", sessionID)))
		r.agents[sessionID] = a
	}
	r.mu.Unlock()

	if r.sessions != nil {
		if err := r.sessions.TouchSession(ctx, sessionID); err != nil {
			// Activity tracking must not fail the chat path.
			r.logger.Warn("failed to bump session activity",
				zap.String("session", sessionID),
				zap.Error(err))
		}
	}
	return a, nil
}
