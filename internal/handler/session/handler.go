package session

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/internal/controller"
	"github.com/atelierhq/atelier/backend/pkg/utils"
)

// Handler serves the session CRUD surface.
type Handler struct {
	ctrl   *controller.Controller
	logger *zap.Logger
}

// New creates the session handler.
func New(ctrl *controller.Controller, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ctrl: ctrl, logger: logger}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleList)
	r.Post("/sessions", h.handleCreate)
	r.Delete("/sessions", h.handleClearAll)
	r.Delete("/sessions/{sessionID}", h.handleDelete)
	r.Put("/sessions/{sessionID}/title", h.handleRename)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.ctrl.ListSessions(r.Context())
	if err != nil {
		h.logger.Error("failed to list sessions", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to retrieve sessions")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, sessions)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title        string `json:"title"`
		SessionID    string `json:"sessionId"`
		FirstMessage string `json:"firstMessage"`
	}
	// An empty or malformed body falls back to generated defaults.
	_ = json.NewDecoder(r.Body).Decode(&payload)

	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	title := DeriveTitle(payload.Title, payload.FirstMessage, time.Now())

	if _, err := h.ctrl.AddSession(r.Context(), sessionID, title); err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]string{"sessionId": sessionID, "title": title})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	deleted, err := h.ctrl.RemoveSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to delete session", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	if !deleted {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Title == "" {
		utils.RespondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	updated, err := h.ctrl.RenameSession(r.Context(), sessionID, payload.Title)
	if err != nil {
		h.logger.Error("failed to update session title", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to update session title")
		return
	}
	if !updated {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]string{"title": payload.Title})
}

func (h *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.ctrl.ClearSessions(r.Context())
	if err != nil {
		h.logger.Error("failed to clear sessions", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to clear all sessions")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]int{"deletedCount": count})
}

// DeriveTitle picks the session title: an explicit title wins; otherwise
// the first message, collapsed to single spaces and truncated to 37 runes
// plus an ellipsis when longer than 40, suffixed with a date/time stamp;
// otherwise a plain dated placeholder.
func DeriveTitle(title, firstMessage string, now time.Time) string {
	if title != "" {
		return title
	}

	stamp := now.Format("01/02 15:04")
	message := strings.Join(strings.Fields(firstMessage), " ")
	if message == "" {
		return "Chat " + stamp
	}
	if utf8.RuneCountInString(message) > 40 {
		message = string([]rune(message)[:37]) + "..."
	}
	return message + " • " + stamp
}
