// Package chat exposes the /chat and /chat-stream endpoints.
package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/config"
	"github.com/iecho-platform/iecho/backend/internal/model/chat"
	chatService "github.com/iecho-platform/iecho/backend/internal/service/chat"
	"github.com/iecho-platform/iecho/backend/pkg/utils"
)

// Handler serves the chat endpoints.
type Handler struct {
	svc            *chatService.Service
	validate       *validator.Validate
	limits         config.ChatConfig
	retrievalReady bool
	log            *zap.Logger
}

// New creates the chat handler. retrievalReady gates both endpoints: without
// a knowledge base there is nothing to ground answers in.
func New(svc *chatService.Service, limits config.ChatConfig, retrievalReady bool, log *zap.Logger) *Handler {
	return &Handler{
		svc:            svc,
		validate:       validator.New(),
		limits:         limits,
		retrievalReady: retrievalReady,
		log:            log,
	}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/chat-stream", h.handleChatStream)
}

// decodeAndValidate parses the request body and applies the shared guards.
// On failure it writes the error response and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request) (*chat.ChatRequest, bool) {
	var req chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "query and userId are required")
		return nil, false
	}
	if strings.TrimSpace(req.Query) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Query cannot be empty")
		return nil, false
	}
	if tokens := chat.EstimateTokens(req.Query); tokens > h.limits.QueryTokenLimit {
		utils.RespondError(w, http.StatusBadRequest,
			fmt.Sprintf("Query too long. %d tokens provided, maximum %d tokens allowed.", tokens, h.limits.QueryTokenLimit))
		return nil, false
	}
	if int64(len(req.Image)) > h.limits.MaxImageBytes {
		utils.RespondError(w, http.StatusRequestEntityTooLarge, "Image too large. Maximum size is 5MB.")
		return nil, false
	}
	if !h.retrievalReady {
		utils.RespondError(w, http.StatusInternalServerError, "Knowledge Base not configured")
		return nil, false
	}
	return &req, true
}

// handleChat runs one turn to completion and returns the aggregate record.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}

	var final *chat.ChatResponse
	var failure string
	h.svc.Run(r.Context(), turnRequest(req), func(ev chat.OutboundEvent) error {
		switch {
		case ev.Final != nil:
			final = ev.Final
		case ev.Type == chat.EventError:
			failure = ev.Data
		}
		return nil
	})

	if final == nil {
		if failure == "" {
			failure = "Internal server error"
		}
		utils.RespondError(w, http.StatusInternalServerError, failure)
		return
	}
	utils.RespondJSON(w, http.StatusOK, final)
}

// handleChatStream runs one turn as an NDJSON stream: incremental frames
// followed by either the bare aggregate record or a single error frame.
func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAndValidate(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupNDJSONHeaders(w)
	w.WriteHeader(http.StatusOK)

	h.svc.Run(r.Context(), turnRequest(req), func(ev chat.OutboundEvent) error {
		if ev.Final != nil {
			return utils.WriteNDJSONLine(w, flusher, ev.Final)
		}
		return utils.WriteNDJSONLine(w, flusher, ev)
	})
}

func turnRequest(req *chat.ChatRequest) chatService.TurnRequest {
	return chatService.TurnRequest{
		Query:     req.Query,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Image:     req.Image,
	}
}
