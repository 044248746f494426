package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atelierhq/atelier/backend/internal/model/catalog"
	"github.com/atelierhq/atelier/backend/pkg/utils"
)

// Handler exposes the model catalog.
type Handler struct {
	models catalog.Store
}

// New creates the catalog handler.
func New(models catalog.Store) *Handler {
	return &Handler{models: models}
}

// RegisterRoutes mounts the catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/models", h.handleListModels)
}

func (h *Handler) handleListModels(w http.ResponseWriter, _ *http.Request) {
	utils.RespondSuccess(w, http.StatusOK, h.models.List())
}
