// Package handler wires HTTP routes to core services.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/config"
	feedbackStore "github.com/iecho-platform/iecho/backend/internal/feedback"
	chatHandler "github.com/iecho-platform/iecho/backend/internal/handler/chat"
	documentsHandler "github.com/iecho-platform/iecho/backend/internal/handler/documents"
	feedbackHandler "github.com/iecho-platform/iecho/backend/internal/handler/feedback"
	middlewarePkg "github.com/iecho-platform/iecho/backend/internal/middleware"
	chatService "github.com/iecho-platform/iecho/backend/internal/service/chat"
	"github.com/iecho-platform/iecho/backend/internal/storage"
	"github.com/iecho-platform/iecho/backend/pkg/utils"
)

const serviceName = "iECHO RAG Chatbot API"

// Deps carries everything the router needs. Documents may be nil when no
// bucket is configured; Feedback may be nil when the store failed to open.
type Deps struct {
	Chat           *chatService.Service
	ChatLimits     config.ChatConfig
	RetrievalReady bool
	Feedback       *feedbackStore.Store
	Documents      *storage.Documents
	Log            *zap.Logger
}

// NewRouter builds the HTTP surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler.New(deps.Chat, deps.ChatLimits, deps.RetrievalReady, deps.Log).RegisterRoutes(r)
	documentsHandler.New(deps.Documents, deps.Log).RegisterRoutes(r)
	if deps.Feedback != nil {
		feedbackHandler.New(deps.Feedback, deps.Log).RegisterRoutes(r)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"service":                 serviceName,
			"status":                  "running",
			"knowledgeBaseConfigured": deps.RetrievalReady,
			"documentsConfigured":     deps.Documents != nil,
			"feedbackConfigured":      deps.Feedback != nil,
			"timestamp":               time.Now().UTC().Format(time.RFC3339),
		})
	})

	return r
}
