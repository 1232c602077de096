package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/moodflip/internal/analysis/emotion"
	"github.com/zhouzirui/moodflip/internal/model/chat"
)

const defaultReplyTimeout = 30 * time.Second

// Service composes mood-inverted replies through a chat model.
type Service struct {
	builder *PromptBuilder
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
	logger  *slog.Logger
}

// NewService compiles the prompt → model chain.
func NewService(ctx context.Context, chatModel model.ChatModel, timeout time.Duration, logger *slog.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	builder := NewPromptBuilder()

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(builder.Template())
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}

	return &Service{
		builder: builder,
		chain:   runnable,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Reply asks the model for a reply to history in the register opposite to current. The
// last history entry is the message just submitted. Any transport failure, missing content
// or reply that is empty once reasoning blocks are stripped comes back as an error.
func (s *Service) Reply(ctx context.Context, history []chat.Message, current analysis.Label) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	response, err := s.chain.Invoke(ctx, s.builder.Variables(history, current))
	if err != nil {
		return "", fmt.Errorf("failed to run reply chain: %w", err)
	}
	if response == nil {
		return "", ErrEmptyReply
	}

	text := StripReasoning(response.Content)
	if text == "" {
		return "", ErrEmptyReply
	}

	s.logger.Debug("reply generated",
		"emotion", current.OrUnknown(),
		"turns", len(history),
		"length", len(text),
		"elapsed", time.Since(start))
	return text, nil
}
