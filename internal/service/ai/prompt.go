package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/elliotchance/pie/v2"

	analysis "github.com/zhouzirui/moodflip/internal/analysis/emotion"
	"github.com/zhouzirui/moodflip/internal/model/chat"
)

// moodInversionPrompt is formatted with FString; it must not contain braces other than
// its two placeholders.
const moodInversionPrompt = `You are a contrarian chat companion in a mood mirror demo.
The user's face currently reads as: {emotion}.

Rules:
1. Analyze what the user wrote against that detected emotion.
2. If the words and the face visibly conflict, point the conflict out.
3. Always answer in the emotional register opposite to the detected emotion. Your register for this reply: {opposite}.
4. Never repeat the user's text back and never name the detected emotion label verbatim.
5. Keep it playful and a little sarcastic. A few sentences at most.`

// PromptBuilder turns a transcript and the current emotion into chat model input.
type PromptBuilder struct {
	template prompt.ChatTemplate
}

// NewPromptBuilder creates the mood inversion template.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage(moodInversionPrompt),
			schema.MessagesPlaceholder("history", false),
		),
	}
}

// Template exposes the chat template so it can be chained in front of a model.
func (b *PromptBuilder) Template() prompt.ChatTemplate {
	return b.template
}

// Variables maps the transcript and the current label onto template variables. Only the
// current label parameterizes the instruction; emotions stored on earlier turns are ignored.
func (b *PromptBuilder) Variables(history []chat.Message, current analysis.Label) map[string]any {
	label := current.OrUnknown()
	return map[string]any{
		"emotion":  string(label),
		"opposite": label.Opposite(),
		"history":  HistoryMessages(history),
	}
}

// Build renders the full payload: the instruction first, then the transcript in order.
func (b *PromptBuilder) Build(ctx context.Context, history []chat.Message, current analysis.Label) ([]*schema.Message, error) {
	messages, err := b.template.Format(ctx, b.Variables(history, current))
	if err != nil {
		return nil, fmt.Errorf("format mood inversion prompt: %w", err)
	}
	return messages, nil
}

// HistoryMessages converts the transcript to caller/responder roles.
func HistoryMessages(history []chat.Message) []*schema.Message {
	return pie.Map(history, func(msg chat.Message) *schema.Message {
		if msg.Role == chat.RoleBot {
			return schema.AssistantMessage(msg.Text, nil)
		}
		return schema.UserMessage(msg.Text)
	})
}
