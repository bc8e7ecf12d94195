// Package agent wraps the eino-based orchestration pipeline behind an opaque
// token stream. The orchestrator model routes each query to exactly one
// specialist tool; specialists ground their answers in the retrieval backend
// and their output streams back through the turn's token channel.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/pipeline"
	"github.com/iecho-platform/iecho/backend/internal/rag"
	"github.com/iecho-platform/iecho/backend/internal/session"
)

// historyWindow bounds how many rendered turns are folded into the
// orchestrator prompt.
const historyWindow = 4

// Orchestrator opens one token stream per turn. The router model carries the
// specialist tool bindings; the answer model generates specialist responses
// and must stay unbound so it cannot recurse into tool calls.
type Orchestrator struct {
	router    model.ChatModel
	answer    model.ChatModel
	retriever rag.Retriever
	log       *zap.Logger
}

// NewOrchestrator binds the specialist tool set to the router model.
func NewOrchestrator(routerModel, answerModel model.ChatModel, retriever rag.Retriever, log *zap.Logger) (*Orchestrator, error) {
	if routerModel == nil || answerModel == nil {
		return nil, errors.New("orchestrator requires router and answer models")
	}
	if retriever == nil {
		return nil, errors.New("orchestrator requires a retriever")
	}
	if err := routerModel.BindTools(specialistTools()); err != nil {
		return nil, fmt.Errorf("bind specialist tools: %w", err)
	}
	return &Orchestrator{
		router:    routerModel,
		answer:    answerModel,
		retriever: retriever,
		log:       log,
	}, nil
}

func specialistTools() []*schema.ToolInfo {
	queryParam := func(desc string) *schema.ParamsOneOf {
		return schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"user_query": {
				Type:     schema.String,
				Desc:     desc,
				Required: true,
			},
		})
	}
	return []*schema.ToolInfo{
		{
			Name:        pipeline.ToolTBSpecialist,
			Desc:        "TB specialist agent: diagnosis, tests, protocols, MDR/XDR, prevention, patient counseling.",
			ParamsOneOf: queryParam("The user's tuberculosis or health question."),
		},
		{
			Name:        pipeline.ToolAgricultureSpecialist,
			Desc:        "Agriculture specialist agent: crop/soil mgmt, irrigation, IPM, yield, food safety & nutrition, infrastructure.",
			ParamsOneOf: queryParam("The user's agriculture or farming question."),
		},
		{
			Name:        pipeline.ToolRejectHandler,
			Desc:        "Politely decline queries unrelated to TB, agriculture, or health topics.",
			ParamsOneOf: queryParam("The out-of-scope user query."),
		},
	}
}

// OpenTurn starts an orchestrator run for one query and returns its token
// stream. The returned turn must be closed by the caller.
func (o *Orchestrator) OpenTurn(ctx context.Context, query string, history []session.Turn) (*Turn, error) {
	runCtx, cancel := context.WithCancel(ctx)
	t := newTurn(cancel)
	go o.run(runCtx, t, query, history)
	return t, nil
}

func (o *Orchestrator) run(ctx context.Context, t *Turn, query string, history []session.Turn) {
	defer close(t.tokens)

	if err := o.route(ctx, t, query, history); err != nil {
		if ctx.Err() == nil {
			t.err = err
		}
	}
}

// route streams the router model's own output, then dispatches each tool
// call it settled on. Router text precedes specialist text, matching the
// order the model produced it.
func (o *Orchestrator) route(ctx context.Context, t *Turn, query string, history []session.Turn) error {
	msgs := []*schema.Message{
		schema.SystemMessage(orchestratorContext(history)),
		schema.UserMessage(query),
	}

	sr, err := o.router.Stream(ctx, msgs)
	if err != nil {
		return fmt.Errorf("open orchestrator stream: %w", err)
	}
	defer sr.Close()

	var chunks []*schema.Message
	for {
		chunk, recvErr := sr.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return fmt.Errorf("orchestrator stream: %w", recvErr)
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
		if chunk.ReasoningContent != "" && chunk.Content == "" {
			t.send(ctx.Done(), Token{Kind: TokenSuppressed})
			continue
		}
		if chunk.Content != "" {
			t.send(ctx.Done(), Token{Kind: TokenText, Text: chunk.Content})
		}
	}

	if len(chunks) == 0 {
		return nil
	}
	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		return fmt.Errorf("concat orchestrator chunks: %w", err)
	}

	for _, call := range full.ToolCalls {
		name := call.Function.Name
		if !t.send(ctx.Done(), Token{Kind: TokenToolStarted, Tool: name}) {
			return nil
		}
		if err := o.dispatch(ctx, t, name, specialistQuery(call.Function.Arguments, query), history); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, t *Turn, name, query string, history []session.Turn) error {
	switch name {
	case pipeline.ToolRejectHandler:
		t.send(ctx.Done(), Token{Kind: TokenText, Text: rejectionText})
		return nil
	case pipeline.ToolTBSpecialist:
		return o.runSpecialist(ctx, t, name, tbSpecialistPrompt, query, history)
	case pipeline.ToolAgricultureSpecialist:
		return o.runSpecialist(ctx, t, name, agricultureSpecialistPrompt, query, history)
	default:
		o.log.Warn("orchestrator requested unknown tool", zap.String("tool", name))
		return nil
	}
}

// runSpecialist grounds the query in the knowledge base and streams the
// specialist's answer. The collector is reset on every retrieval call, so a
// specialist that retrieves repeatedly keeps only the latest call's
// citations.
func (o *Orchestrator) runSpecialist(ctx context.Context, t *Turn, name, systemPrompt, query string, history []session.Turn) error {
	col := t.collector(name)

	result, err := o.retriever.Retrieve(ctx, retrievalQuery(query, history))
	col.Reset()
	if err != nil {
		o.log.Error("knowledge base retrieval failed",
			zap.String("specialist", name),
			zap.Error(err))
		t.send(ctx.Done(), Token{Kind: TokenText, Text: retrievalApology})
		return nil
	}
	for _, ref := range result.References {
		col.Add(ref.SourceURI, ref.Text)
	}

	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(specialistInput(query, result.Text)),
	}
	sr, err := o.answer.Stream(ctx, msgs)
	if err != nil {
		return fmt.Errorf("open %s stream: %w", name, err)
	}
	defer sr.Close()

	for {
		chunk, recvErr := sr.Recv()
		if errors.Is(recvErr, io.EOF) {
			return nil
		}
		if recvErr != nil {
			return fmt.Errorf("%s stream: %w", name, recvErr)
		}
		if chunk == nil {
			continue
		}
		if chunk.ReasoningContent != "" && chunk.Content == "" {
			t.send(ctx.Done(), Token{Kind: TokenSuppressed})
			continue
		}
		if chunk.Content != "" {
			if !t.send(ctx.Done(), Token{Kind: TokenText, Text: chunk.Content}) {
				return nil
			}
		}
	}
}

// orchestratorContext folds recent history into the system prompt for
// conversational continuity.
func orchestratorContext(history []session.Turn) string {
	if len(history) == 0 {
		return orchestratorPrompt
	}
	return orchestratorPrompt + "\n\nConversation history:\n" + strings.Join(renderHistory(history, historyWindow), "\n")
}

// retrievalQuery grounds the knowledge base search in the most recent prior
// user turn when one exists.
func retrievalQuery(query string, history []session.Turn) string {
	if len(history) == 0 {
		return query
	}
	recent := tailTurns(history, historyWindow)
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Speaker == session.SpeakerUser {
			return fmt.Sprintf("Previous question: %s\nCurrent question: %s", recent[i].Line(), query)
		}
	}
	return fmt.Sprintf("Context: %s\n\nCurrent question: %s", strings.Join(renderHistory(history, 2), " "), query)
}

func specialistInput(query, kbText string) string {
	if strings.TrimSpace(kbText) == "" {
		kbText = "No relevant documents were found."
	}
	return fmt.Sprintf("Knowledge base search results:\n%s\n\nUser question: %s", kbText, query)
}

// specialistQuery extracts the user_query tool argument, falling back to the
// original query on malformed arguments.
func specialistQuery(arguments, fallback string) string {
	var args struct {
		UserQuery string `json:"user_query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || strings.TrimSpace(args.UserQuery) == "" {
		return fallback
	}
	return args.UserQuery
}

func tailTurns(history []session.Turn, n int) []session.Turn {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func renderHistory(history []session.Turn, n int) []string {
	recent := tailTurns(history, n)
	lines := make([]string, 0, len(recent))
	for _, turn := range recent {
		lines = append(lines, turn.Line())
	}
	return lines
}
