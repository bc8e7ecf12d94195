package chat

// Citation points at a knowledge base document that grounded an answer.
// Excerpt is kept for logging but never serialized to clients.
type Citation struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Excerpt string `json:"-"`
}

// ChatResponse is the aggregate record returned by /chat and emitted as the
// final line of a /chat-stream response.
type ChatResponse struct {
	Response          string     `json:"response"`
	Citations         []Citation `json:"citations"`
	SessionID         string     `json:"sessionId"`
	ResponseID        string     `json:"responseId"`
	UserID            string     `json:"userId"`
	FollowUpQuestions []string   `json:"followUpQuestions,omitempty"`
}

// EventType labels a frame on the outbound NDJSON stream.
type EventType string

const (
	EventContent       EventType = "content"
	EventThinking      EventType = "thinking"
	EventThinkingStart EventType = "thinking_start"
	EventThinkingEnd   EventType = "thinking_end"
	EventError         EventType = "error"
)

// OutboundEvent is one frame of the streaming protocol. Either Final is set
// (the terminal aggregate record, serialized bare) or Type describes an
// incremental frame.
type OutboundEvent struct {
	Type  EventType     `json:"type,omitempty"`
	Data  string        `json:"data,omitempty"`
	Final *ChatResponse `json:"-"`
}

// Content wraps a visible text fragment.
func Content(data string) OutboundEvent {
	return OutboundEvent{Type: EventContent, Data: data}
}

// Thinking wraps a hidden reasoning fragment forwarded only as a UI hint.
func Thinking(data string) OutboundEvent {
	return OutboundEvent{Type: EventThinking, Data: data}
}

// Error wraps a terminal error frame.
func Error(data string) OutboundEvent {
	return OutboundEvent{Type: EventError, Data: data}
}

// Final wraps the terminal aggregate record.
func Final(resp *ChatResponse) OutboundEvent {
	return OutboundEvent{Final: resp}
}
