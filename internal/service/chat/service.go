// Package chat drives one request/response turn: it consumes the upstream
// token stream, separates visible output from leaked reasoning, tracks the
// chosen specialist, enforces the wall-clock budget, and maintains session
// history.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/agent"
	chatmodel "github.com/iecho-platform/iecho/backend/internal/model/chat"
	"github.com/iecho-platform/iecho/backend/internal/pipeline"
	"github.com/iecho-platform/iecho/backend/internal/session"
)

const (
	timeoutMessage = "Request timeout. Please try again."
	failureMessage = "AI generation failed. Please try again."
)

// TokenStream is the consumed face of one upstream run.
type TokenStream interface {
	Recv() (agent.Token, error)
	Close()
	Citations(tool string) []chatmodel.Citation
}

// Upstream opens one token stream per turn.
type Upstream interface {
	OpenTurn(ctx context.Context, query string, history []session.Turn) (TokenStream, error)
}

// UpstreamFunc adapts a function to the Upstream interface.
type UpstreamFunc func(ctx context.Context, query string, history []session.Turn) (TokenStream, error)

// OpenTurn implements Upstream.
func (f UpstreamFunc) OpenTurn(ctx context.Context, query string, history []session.Turn) (TokenStream, error) {
	return f(ctx, query, history)
}

// FollowUpSource suggests follow-up questions for a finished turn.
type FollowUpSource interface {
	Generate(ctx context.Context, response, query string, history []session.Turn) []string
}

// Emitter receives outbound events in strict emission order.
type Emitter func(chatmodel.OutboundEvent) error

// TurnRequest is one validated chat request.
type TurnRequest struct {
	Query     string
	UserID    string
	SessionID string
	// Image is an optional base64 payload, already size-checked.
	Image string
}

// Service supervises chat turns. The only state shared across requests is
// the session store.
type Service struct {
	sessions  *session.Store
	upstream  Upstream
	followUps FollowUpSource
	log       *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewService wires a turn supervisor. A nil clock defaults to time.Now.
func NewService(sessions *session.Store, upstream Upstream, followUps FollowUpSource, timeout time.Duration, log *zap.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		sessions:  sessions,
		upstream:  upstream,
		followUps: followUps,
		log:       log,
		timeout:   timeout,
		now:       now,
	}
}

// Run executes one turn, emitting incremental frames and exactly one
// terminal event (aggregate record or error). The returned session id is
// valid even when the turn fails.
func (s *Service) Run(ctx context.Context, req TurnRequest, emit Emitter) string {
	s.sessions.SweepExpired()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	history := s.sessions.History(sessionID)

	query := req.Query
	if req.Image != "" {
		imagePath, cleanup, err := stageImage(req.Image)
		if err != nil {
			s.logTurnError("image staging failed", req, sessionID, err)
			emit(chatmodel.Error(failureMessage))
			return sessionID
		}
		defer cleanup()
		// Hint the orchestrator to inspect the image before routing.
		query = "Image path: " + imagePath + "\n" + query
	}

	stream, err := s.upstream.OpenTurn(ctx, query, history)
	if err != nil {
		s.logTurnError("upstream open failed", req, sessionID, err)
		emit(chatmodel.Error(failureMessage))
		return sessionID
	}
	defer stream.Close()

	scanner := pipeline.NewTagScanner()
	tracker := pipeline.NewToolChoiceTracker()
	var visible strings.Builder
	start := s.now()

	for {
		tok, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			s.logTurnError("upstream stream failed", req, sessionID, recvErr)
			emit(chatmodel.Error(failureMessage))
			return sessionID
		}

		// Cooperative budget check between tokens; a stalled upstream can
		// only be caught on its next yield.
		if s.now().Sub(start) > s.timeout {
			s.log.Warn("turn exceeded stream budget",
				zap.String("sessionId", sessionID),
				zap.String("userId", req.UserID),
				zap.Duration("budget", s.timeout))
			emit(chatmodel.Error(timeoutMessage))
			return sessionID
		}

		switch tok.Kind {
		case agent.TokenSuppressed:
			// Model-internal signal, never surfaced.
		case agent.TokenToolStarted:
			tracker.Record(tok.Tool)
		case agent.TokenText:
			for _, ev := range scanner.Feed(tok.Text) {
				switch ev.Kind {
				case pipeline.KindContent:
					visible.WriteString(ev.Text)
					if emit(chatmodel.Content(ev.Text)) != nil {
						return sessionID
					}
				case pipeline.KindThinking:
					emit(chatmodel.Thinking(ev.Text))
				case pipeline.KindThinkingStart:
					emit(chatmodel.OutboundEvent{Type: chatmodel.EventThinkingStart})
				case pipeline.KindThinkingEnd:
					emit(chatmodel.OutboundEvent{Type: chatmodel.EventThinkingEnd})
				}
			}
		}
	}

	for _, ev := range scanner.Flush() {
		if ev.Kind == pipeline.KindContent {
			visible.WriteString(ev.Text)
			emit(chatmodel.Content(ev.Text))
		}
	}
	fullText := pipeline.Sanitize(visible.String())

	s.sessions.Append(sessionID, session.SpeakerUser, query)
	s.sessions.Append(sessionID, session.SpeakerAssistant, fullText)

	chosen := tracker.Current()
	citations := stream.Citations(chosen)
	if citations == nil {
		citations = []chatmodel.Citation{}
	}

	responseID := uuid.NewString()
	followUps := s.generateFollowUps(ctx, fullText, req.Query, sessionID)

	s.log.Info("chat complete",
		zap.String("userId", req.UserID),
		zap.String("sessionId", sessionID),
		zap.String("responseId", responseID),
		zap.String("selectedAgent", orUnknown(chosen)),
		zap.String("query", truncate(req.Query, 200)),
		zap.Bool("hasImage", req.Image != ""),
		zap.Int("responseLength", len(fullText)),
		zap.Int("citations", len(citations)))

	emit(chatmodel.Final(&chatmodel.ChatResponse{
		Response:          fullText,
		Citations:         citations,
		SessionID:         sessionID,
		ResponseID:        responseID,
		UserID:            req.UserID,
		FollowUpQuestions: followUps,
	}))
	return sessionID
}

func (s *Service) generateFollowUps(ctx context.Context, response, query, sessionID string) []string {
	if s.followUps == nil {
		return nil
	}
	return s.followUps.Generate(ctx, response, query, s.sessions.History(sessionID))
}

func (s *Service) logTurnError(msg string, req TurnRequest, sessionID string, err error) {
	s.log.Error(msg,
		zap.String("userId", req.UserID),
		zap.String("sessionId", sessionID),
		zap.String("query", truncate(req.Query, 200)),
		zap.Bool("hasImage", req.Image != ""),
		zap.Error(err))
}

func orUnknown(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
