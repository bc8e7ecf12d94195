// Package feedback exposes the /feedback endpoint.
package feedback

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/feedback"
	"github.com/iecho-platform/iecho/backend/internal/model/chat"
	"github.com/iecho-platform/iecho/backend/pkg/utils"
)

// Handler stores response ratings.
type Handler struct {
	store    *feedback.Store
	validate *validator.Validate
	log      *zap.Logger
}

// New creates the feedback handler.
func New(store *feedback.Store, log *zap.Logger) *Handler {
	return &Handler{store: store, validate: validator.New(), log: log}
}

// RegisterRoutes registers the feedback route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/feedback", h.handleSubmit)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req chat.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	id, err := h.store.Save(feedback.Record{
		UserID:     req.UserID,
		ResponseID: req.ResponseID,
		Rating:     req.Rating,
		Feedback:   req.Feedback,
	})
	if err != nil {
		h.log.Error("feedback save failed",
			zap.String("userId", req.UserID),
			zap.String("responseId", req.ResponseID),
			zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	h.log.Info("feedback submitted",
		zap.String("userId", req.UserID),
		zap.String("responseId", req.ResponseID),
		zap.Int("rating", req.Rating),
		zap.String("feedbackId", id))

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message":    "Feedback submitted successfully",
		"feedbackId": id,
	})
}
