// Package documents exposes the knowledge base document listing and
// download-link endpoints.
package documents

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/storage"
	"github.com/iecho-platform/iecho/backend/pkg/utils"
)

// Handler serves document metadata from the knowledge base bucket. A nil
// Documents client means the bucket is not configured.
type Handler struct {
	docs *storage.Documents
	log  *zap.Logger
}

// New creates the documents handler.
func New(docs *storage.Documents, log *zap.Logger) *Handler {
	return &Handler{docs: docs, log: log}
}

// RegisterRoutes registers the document routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/documents", h.handleList)
	r.Get("/document-url/*", h.handleSignedURL)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if h.docs == nil {
		utils.RespondError(w, http.StatusInternalServerError, "Knowledge Base not configured")
		return
	}
	docs, err := h.docs.List(r.Context())
	if err != nil {
		h.log.Error("document listing failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

func (h *Handler) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	if h.docs == nil {
		utils.RespondError(w, http.StatusInternalServerError, "Knowledge Base not configured")
		return
	}
	path := chi.URLParam(r, "*")
	if path == "" {
		utils.RespondError(w, http.StatusBadRequest, "document path is required")
		return
	}
	url, err := h.docs.SignedURL(path)
	if err != nil {
		h.log.Error("signed url generation failed", zap.String("path", path), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate document URL")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}
