package agent

import (
	"io"
	"sync"

	"github.com/iecho-platform/iecho/backend/internal/model/chat"
	"github.com/iecho-platform/iecho/backend/internal/pipeline"
)

// TokenKind discriminates upstream stream events.
type TokenKind int

const (
	// TokenText carries a fragment of assistant output.
	TokenText TokenKind = iota
	// TokenToolStarted reports that a downstream tool began running.
	TokenToolStarted
	// TokenSuppressed is a model-internal signal that is never surfaced.
	TokenSuppressed
)

// Token is one event from the upstream agent run.
type Token struct {
	Kind TokenKind
	Text string
	Tool string
}

// Turn is one live orchestrator run: a token stream plus the per-specialist
// citation collectors filled while the run executes. Tokens are consumed
// exactly once, in arrival order.
type Turn struct {
	tokens chan Token
	err    error

	cancel    func()
	closeOnce sync.Once

	mu         sync.Mutex
	collectors map[string]*pipeline.CitationCollector
}

func newTurn(cancel func()) *Turn {
	return &Turn{
		tokens:     make(chan Token, 16),
		cancel:     cancel,
		collectors: make(map[string]*pipeline.CitationCollector),
	}
}

// Recv returns the next token, io.EOF when the run finished, or the run
// error when the upstream failed.
func (t *Turn) Recv() (Token, error) {
	tok, ok := <-t.tokens
	if !ok {
		if t.err != nil {
			return Token{}, t.err
		}
		return Token{}, io.EOF
	}
	return tok, nil
}

// Close abandons the run. Safe to call multiple times and concurrently with
// the producer.
func (t *Turn) Close() {
	t.closeOnce.Do(t.cancel)
}

// Citations returns the deduplicated citations of the named specialist's
// most recent retrieval, or nil for reject/unknown/none.
func (t *Turn) Citations(tool string) []chat.Citation {
	t.mu.Lock()
	defer t.mu.Unlock()
	col, ok := t.collectors[tool]
	if !ok {
		return nil
	}
	return col.Snapshot()
}

// collector returns the named specialist's collector, creating it on first
// use.
func (t *Turn) collector(tool string) *pipeline.CitationCollector {
	t.mu.Lock()
	defer t.mu.Unlock()
	col, ok := t.collectors[tool]
	if !ok {
		col = pipeline.NewCitationCollector()
		t.collectors[tool] = col
	}
	return col
}

// send delivers a token unless the consumer abandoned the run.
func (t *Turn) send(done <-chan struct{}, tok Token) bool {
	select {
	case t.tokens <- tok:
		return true
	case <-done:
		return false
	}
}
