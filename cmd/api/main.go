package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/agent"
	"github.com/iecho-platform/iecho/backend/internal/config"
	feedbackStore "github.com/iecho-platform/iecho/backend/internal/feedback"
	"github.com/iecho-platform/iecho/backend/internal/handler"
	"github.com/iecho-platform/iecho/backend/internal/logger"
	"github.com/iecho-platform/iecho/backend/internal/rag"
	chatService "github.com/iecho-platform/iecho/backend/internal/service/chat"
	"github.com/iecho-platform/iecho/backend/internal/session"
	"github.com/iecho-platform/iecho/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.Log.File, cfg.Log.Production)
	defer zlog.Sync()

	// Knowledge base retriever
	var retriever rag.Retriever
	if cfg.Retrieval.Enabled() {
		retriever, err = rag.NewWeaviateRetriever(cfg.Retrieval.Host, cfg.Retrieval.Scheme, cfg.Retrieval.Class, cfg.Retrieval.Limit, zlog)
		if err != nil {
			zlog.Warn("knowledge base client init failed, retrieval disabled", zap.Error(err))
			retriever = nil
		} else {
			zlog.Info("knowledge base client initialized", zap.String("host", cfg.Retrieval.Host))
		}
	} else {
		zlog.Warn("WEAVIATE_HOST not set, retrieval disabled")
	}

	// Orchestrator over two model instances: tool bindings must not leak
	// into the answer model.
	var upstream chatService.Upstream
	var followUps chatService.FollowUpSource
	if cfg.AI.Enabled() && retriever != nil {
		routerModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			zlog.Fatal("router model init failed", zap.Error(err))
		}
		answerModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			zlog.Fatal("answer model init failed", zap.Error(err))
		}
		orch, err := agent.NewOrchestrator(routerModel, answerModel, retriever, zlog)
		if err != nil {
			zlog.Fatal("orchestrator init failed", zap.Error(err))
		}
		upstream = chatService.UpstreamFunc(func(ctx context.Context, query string, history []session.Turn) (chatService.TokenStream, error) {
			return orch.OpenTurn(ctx, query, history)
		})

		followUpModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			zlog.Warn("follow-up model init failed, using default suggestions", zap.Error(err))
			followUpModel = nil
		}
		followUps = agent.NewFollowUpGenerator(followUpModel, zlog)
	} else {
		zlog.Warn("Ark credentials or retrieval missing, chat turns will fail until configured")
	}

	// Feedback store
	var feedback *feedbackStore.Store
	if cfg.Feedback.Path != "" {
		feedback, err = feedbackStore.Open(cfg.Feedback.Path)
		if err != nil {
			zlog.Warn("feedback store unavailable", zap.Error(err))
		} else {
			defer feedback.Close()
		}
	}

	// Document bucket
	var docs *storage.Documents
	if cfg.Storage.Enabled() {
		docs, err = storage.NewDocuments(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile, zlog)
		if err != nil {
			zlog.Warn("document bucket unavailable", zap.Error(err))
			docs = nil
		} else {
			defer docs.Close()
		}
	}

	sessions := session.NewStore(cfg.Chat.SessionTTL, nil)
	svc := chatService.NewService(sessions, upstream, followUps, cfg.Chat.StreamTimeout, zlog, nil)

	router := handler.NewRouter(handler.Deps{
		Chat:           svc,
		ChatLimits:     cfg.Chat,
		RetrievalReady: retriever != nil && upstream != nil,
		Feedback:       feedback,
		Documents:      docs,
		Log:            zlog,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("iECHO backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
