package chat

// ChatRequest is the inbound payload shared by /chat and /chat-stream.
type ChatRequest struct {
	Query     string `json:"query" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	SessionID string `json:"sessionId,omitempty"`
	// Image is an optional base64-encoded image payload.
	Image string `json:"image,omitempty"`
}

// FeedbackRequest rates a previously returned response.
type FeedbackRequest struct {
	UserID     string `json:"userId" validate:"required"`
	ResponseID string `json:"responseId" validate:"required"`
	Rating     int    `json:"rating" validate:"min=1,max=5"`
	Feedback   string `json:"feedback,omitempty"`
}

// EstimateTokens returns a coarse token estimate using the ~6 characters per
// token heuristic of the underlying model family.
func EstimateTokens(text string) int {
	return len(text) / 6
}
