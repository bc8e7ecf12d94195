package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/session"
)

// defaultFollowUps pads the suggestion list when the model returns fewer
// than three usable questions or the call fails outright.
func defaultFollowUps() []string {
	return []string{
		"Would you like a step-by-step plan?",
		"Do you want references or further reading?",
		"Should I tailor this to a specific setting?",
	}
}

// FollowUpGenerator produces up to three follow-up question suggestions via
// a lightweight secondary model call. Failures are absorbed: the caller
// always gets exactly three questions.
type FollowUpGenerator struct {
	model model.ChatModel
	log   *zap.Logger
}

// NewFollowUpGenerator wraps the given chat model. A nil model yields the
// default suggestions.
func NewFollowUpGenerator(chatModel model.ChatModel, log *zap.Logger) *FollowUpGenerator {
	return &FollowUpGenerator{model: chatModel, log: log}
}

// Generate returns exactly three follow-up questions, best-effort.
func (g *FollowUpGenerator) Generate(ctx context.Context, response, query string, history []session.Turn) []string {
	if g == nil || g.model == nil {
		return defaultFollowUps()
	}

	msg, err := g.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(followUpSystemPrompt),
		schema.UserMessage(buildFollowUpPrompt(response, query, history)),
	})
	if err != nil {
		g.log.Warn("follow-up generation failed", zap.Error(err))
		return defaultFollowUps()
	}

	return padFollowUps(parseFollowUps(msg.Content))
}

func buildFollowUpPrompt(response, query string, history []session.Turn) string {
	context := fmt.Sprintf("Original question: %s\nResponse: %s", query, response)
	if len(history) > 0 {
		context += "\nConversation history: " + strings.Join(renderHistory(history, historyWindow), "\n")
	}
	return fmt.Sprintf("Based on this conversation, generate exactly 3 relevant follow-up questions that a user might naturally ask next.\n\n%s\n\n%s", context, followUpInstructions)
}

// parseFollowUps keeps question-like lines and strips accidental bullets or
// numbering.
func parseFollowUps(raw string) []string {
	var questions []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "?") || len(line) <= 10 {
			continue
		}
		questions = append(questions, strings.Trim(line, "- *123456789. "))
	}
	return questions
}

// padFollowUps tops the list up to exactly three entries with defaults.
func padFollowUps(questions []string) []string {
	for _, def := range defaultFollowUps() {
		if len(questions) >= 3 {
			break
		}
		questions = append(questions, def)
	}
	return questions[:3]
}
