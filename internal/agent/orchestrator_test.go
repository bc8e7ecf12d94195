package agent

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/pipeline"
	"github.com/iecho-platform/iecho/backend/internal/rag"
)

// fakeChatModel replays scripted stream chunks; consecutive Stream calls
// consume consecutive scripts.
type fakeChatModel struct {
	scripts   [][]*schema.Message
	streamErr error

	calls int
	bound []*schema.ToolInfo
}

func (m *fakeChatModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("", nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	i := m.calls
	m.calls++
	if i >= len(m.scripts) {
		return schema.StreamReaderFromArray([]*schema.Message{}), nil
	}
	return schema.StreamReaderFromArray(m.scripts[i]), nil
}

func (m *fakeChatModel) BindTools(tools []*schema.ToolInfo) error {
	m.bound = tools
	return nil
}

type fakeRetriever struct {
	results []*rag.Result
	err     error
	queries []string
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string) (*rag.Result, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	i := len(r.queries) - 1
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i], nil
}

func toolCallChunk(name, arguments string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{
		{Function: schema.FunctionCall{Name: name, Arguments: arguments}},
	})
}

func drainTurn(t *testing.T, turn *Turn) []Token {
	t.Helper()
	var tokens []Token
	for {
		tok, err := turn.Recv()
		if errors.Is(err, io.EOF) {
			return tokens
		}
		require.NoError(t, err)
		tokens = append(tokens, tok)
	}
}

func textOf(tokens []Token) string {
	var out string
	for _, tok := range tokens {
		if tok.Kind == TokenText {
			out += tok.Text
		}
	}
	return out
}

func TestNewOrchestratorBindsSpecialistTools(t *testing.T) {
	router := &fakeChatModel{}
	_, err := NewOrchestrator(router, &fakeChatModel{}, &fakeRetriever{}, zap.NewNop())
	require.NoError(t, err)

	require.Len(t, router.bound, 3)
	names := []string{router.bound[0].Name, router.bound[1].Name, router.bound[2].Name}
	assert.ElementsMatch(t, names, []string{
		pipeline.ToolTBSpecialist,
		pipeline.ToolAgricultureSpecialist,
		pipeline.ToolRejectHandler,
	})
}

func TestOpenTurnRoutesThroughSpecialist(t *testing.T) {
	router := &fakeChatModel{scripts: [][]*schema.Message{{
		{Role: schema.Assistant, ReasoningContent: "pick the TB specialist"},
		toolCallChunk(pipeline.ToolTBSpecialist, `{"user_query":"what causes TB?"}`),
	}}}
	answer := &fakeChatModel{scripts: [][]*schema.Message{{
		schema.AssistantMessage("TB is caused by ", nil),
		schema.AssistantMessage("a bacterium.", nil),
	}}}
	retriever := &fakeRetriever{results: []*rag.Result{{
		Text: "Mycobacterium tuberculosis causes TB.",
		References: []rag.Reference{
			{SourceURI: "gs://kb/processed/tb-basics.pdf", Text: "Mycobacterium tuberculosis causes TB."},
		},
	}}}

	orch, err := NewOrchestrator(router, answer, retriever, zap.NewNop())
	require.NoError(t, err)

	turn, err := orch.OpenTurn(context.Background(), "what causes TB?", nil)
	require.NoError(t, err)
	defer turn.Close()

	tokens := drainTurn(t, turn)

	assert.Equal(t, TokenSuppressed, tokens[0].Kind)
	assert.Equal(t, TokenToolStarted, tokens[1].Kind)
	assert.Equal(t, pipeline.ToolTBSpecialist, tokens[1].Tool)
	assert.Equal(t, "TB is caused by a bacterium.", textOf(tokens))

	// The tool argument, not the raw query, drives retrieval.
	require.Len(t, retriever.queries, 1)
	assert.Equal(t, "what causes TB?", retriever.queries[0])

	citations := turn.Citations(pipeline.ToolTBSpecialist)
	require.Len(t, citations, 1)
	assert.Equal(t, "gs://kb/processed/tb-basics.pdf", citations[0].Source)
	assert.Equal(t, "tb-basics", citations[0].Title)
}

func TestRetrievalFailureSubstitutesApology(t *testing.T) {
	router := &fakeChatModel{scripts: [][]*schema.Message{{
		toolCallChunk(pipeline.ToolAgricultureSpecialist, `{"user_query":"drip irrigation spacing"}`),
	}}}
	answer := &fakeChatModel{}
	retriever := &fakeRetriever{err: errors.New("connection refused")}

	orch, err := NewOrchestrator(router, answer, retriever, zap.NewNop())
	require.NoError(t, err)

	turn, err := orch.OpenTurn(context.Background(), "drip irrigation spacing", nil)
	require.NoError(t, err)
	defer turn.Close()

	tokens := drainTurn(t, turn)

	// The turn completes normally with the apology as its whole answer.
	assert.Equal(t, retrievalApology, textOf(tokens))
	assert.Equal(t, 0, answer.calls, "answer model must not run without grounding")

	citations := turn.Citations(pipeline.ToolAgricultureSpecialist)
	assert.NotNil(t, citations)
	assert.Empty(t, citations)
}

func TestSecondRetrievalCitationsWin(t *testing.T) {
	answer := &fakeChatModel{scripts: [][]*schema.Message{
		{schema.AssistantMessage("first pass", nil)},
		{schema.AssistantMessage("second pass", nil)},
	}}
	retriever := &fakeRetriever{results: []*rag.Result{
		{Text: "a", References: []rag.Reference{{SourceURI: "gs://kb/processed/a.pdf", Text: "a"}}},
		{Text: "b", References: []rag.Reference{{SourceURI: "gs://kb/processed/b.pdf", Text: "b"}}},
	}}

	orch, err := NewOrchestrator(&fakeChatModel{}, answer, retriever, zap.NewNop())
	require.NoError(t, err)

	turn := newTurn(func() {})
	ctx := context.Background()
	require.NoError(t, orch.runSpecialist(ctx, turn, pipeline.ToolTBSpecialist, tbSpecialistPrompt, "q", nil))
	require.NoError(t, orch.runSpecialist(ctx, turn, pipeline.ToolTBSpecialist, tbSpecialistPrompt, "q", nil))

	citations := turn.Citations(pipeline.ToolTBSpecialist)
	require.Len(t, citations, 1)
	assert.Equal(t, "gs://kb/processed/b.pdf", citations[0].Source)
}

func TestDispatchRejectHandler(t *testing.T) {
	orch, err := NewOrchestrator(&fakeChatModel{}, &fakeChatModel{}, &fakeRetriever{}, zap.NewNop())
	require.NoError(t, err)

	turn := newTurn(func() {})
	require.NoError(t, orch.dispatch(context.Background(), turn, pipeline.ToolRejectHandler, "write me a poem", nil))

	require.Len(t, turn.tokens, 1)
	tok := <-turn.tokens
	assert.Equal(t, TokenText, tok.Kind)
	assert.Equal(t, rejectionText, tok.Text)
	assert.Nil(t, turn.Citations(pipeline.ToolRejectHandler))
}

func TestDispatchIgnoresAnalysisTools(t *testing.T) {
	retriever := &fakeRetriever{}
	orch, err := NewOrchestrator(&fakeChatModel{}, &fakeChatModel{}, retriever, zap.NewNop())
	require.NoError(t, err)

	turn := newTurn(func() {})
	require.NoError(t, orch.dispatch(context.Background(), turn, "image_reader", "what is in the image?", nil))

	assert.Len(t, turn.tokens, 0)
	assert.Empty(t, retriever.queries)
}
