package project

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/internal/controller"
	"github.com/atelierhq/atelier/backend/pkg/utils"
)

// Handler serves canvas project persistence, scoped per session.
type Handler struct {
	ctrl   *controller.Controller
	logger *zap.Logger
}

// New creates the project handler.
func New(ctrl *controller.Controller, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ctrl: ctrl, logger: logger}
}

// RegisterRoutes mounts the project routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/projects/{sessionID}", h.handleSave)
	r.Get("/projects/{sessionID}", h.handleList)
	r.Get("/projects/{sessionID}/{projectID}", h.handleLoad)
	r.Delete("/projects/{sessionID}/{projectID}", h.handleDelete)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var payload struct {
		ProjectID     string `json:"projectId"`
		DocumentState string `json:"documentState"`
		Title         string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ProjectID == "" || payload.DocumentState == "" {
		utils.RespondError(w, http.StatusBadRequest, "Project ID and document state are required")
		return
	}

	record, err := h.ctrl.SaveProject(r.Context(), sessionID, payload.ProjectID, payload.DocumentState, payload.Title)
	if err != nil {
		h.logger.Error("failed to save project", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to save project")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]string{"projectId": record.ID})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	projects, err := h.ctrl.ListProjects(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to list projects", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, projects)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	projectID := chi.URLParam(r, "projectID")

	record, err := h.ctrl.LoadProject(r.Context(), sessionID, projectID)
	if errors.Is(err, controller.ErrProjectNotFound) {
		utils.RespondError(w, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load project", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to load project")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, record)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	projectID := chi.URLParam(r, "projectID")

	deleted, err := h.ctrl.DeleteProject(r.Context(), sessionID, projectID)
	if err != nil {
		h.logger.Error("failed to delete project", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	if !deleted {
		utils.RespondError(w, http.StatusNotFound, "Project not found")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]bool{"deleted": true})
}
