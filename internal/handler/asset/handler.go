package asset

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/internal/blob"
	"github.com/atelierhq/atelier/backend/internal/controller"
	"github.com/atelierhq/atelier/backend/pkg/utils"
)

const maxUploadBytes = 32 << 20

const notConfiguredMessage = "Asset storage is not configured on the server."

// Handler serves per-session binary asset upload/list/delete.
type Handler struct {
	ctrl   *controller.Controller
	logger *zap.Logger
}

// New creates the asset handler.
func New(ctrl *controller.Controller, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ctrl: ctrl, logger: logger}
}

// RegisterRoutes mounts the asset routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/assets/upload/{sessionID}", h.handleUpload)
	r.Get("/assets/list/{sessionID}", h.handleList)
	r.Delete("/assets/{sessionID}/{filename}", h.handleDelete)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	imageURL, err := h.ctrl.UploadAsset(r.Context(), sessionID, header.Filename, data, header.Header.Get("Content-Type"))
	if errors.Is(err, blob.ErrNotConfigured) {
		utils.RespondError(w, http.StatusInternalServerError, notConfiguredMessage)
		return
	}
	if err != nil {
		h.logger.Error("asset upload failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to upload asset")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]string{"imageUrl": imageURL, "filename": header.Filename})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	urls, err := h.ctrl.ListAssets(r.Context(), sessionID)
	if errors.Is(err, blob.ErrNotConfigured) {
		utils.RespondError(w, http.StatusInternalServerError, notConfiguredMessage)
		return
	}
	if err != nil {
		h.logger.Error("asset list failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to list assets")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string][]string{"imageUrls": urls})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	filename := chi.URLParam(r, "filename")

	err := h.ctrl.DeleteAsset(r.Context(), sessionID, filename)
	if errors.Is(err, blob.ErrNotConfigured) {
		utils.RespondError(w, http.StatusInternalServerError, notConfiguredMessage)
		return
	}
	if err != nil {
		h.logger.Error("asset delete failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to delete asset")
		return
	}
	utils.RespondSuccess(w, http.StatusOK, map[string]bool{"deleted": true})
}
