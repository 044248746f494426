package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/internal/controller"
	assethandler "github.com/atelierhq/atelier/backend/internal/handler/asset"
	cataloghandler "github.com/atelierhq/atelier/backend/internal/handler/catalog"
	projecthandler "github.com/atelierhq/atelier/backend/internal/handler/project"
	sessionhandler "github.com/atelierhq/atelier/backend/internal/handler/session"
	middlewarePkg "github.com/atelierhq/atelier/backend/internal/middleware"
	catalogModel "github.com/atelierhq/atelier/backend/internal/model/catalog"
	"github.com/atelierhq/atelier/backend/internal/proxy"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(ctrl *controller.Controller, agents proxy.AgentResolver, models catalogModel.Store, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessionHandler := sessionhandler.New(ctrl, logger)
	projectHandler := projecthandler.New(ctrl, logger)
	assetHandler := assethandler.New(ctrl, logger)
	catalogHandler := cataloghandler.New(models)
	proxyHandler := proxy.New(agents, logger)

	r.Route("/api", func(api chi.Router) {
		sessionHandler.RegisterRoutes(api)
		projectHandler.RegisterRoutes(api)
		assetHandler.RegisterRoutes(api)
		catalogHandler.RegisterRoutes(api)

		// Anything under the tenant prefix is forwarded to that session's
		// conversational agent, stream and all.
		api.Handle("/chat/{sessionID}/*", proxyHandler)
	})

	return r
}
