package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/moodflip/internal/analysis/emotion"
	"github.com/zhouzirui/moodflip/internal/model/chat"
)

type fakeChatModel struct {
	reply *schema.Message
	err   error
	input []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func newTestService(t *testing.T, fake *fakeChatModel) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), fake, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestReplySanitizes(t *testing.T) {
	fake := &fakeChatModel{reply: schema.AssistantMessage("<think>plan\nthe joke</think>  Oh, thrilling.  ", nil)}
	svc := newTestService(t, fake)

	history := []chat.Message{{Role: chat.RoleUser, Text: "I'm so happy"}}
	reply, err := svc.Reply(context.Background(), history, analysis.Happy)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply != "Oh, thrilling." {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(fake.input) != 2 || fake.input[0].Role != schema.System || fake.input[1].Content != "I'm so happy" {
		t.Fatalf("unexpected model input: %+v", fake.input)
	}
}

func TestReplyEmptyAfterSanitization(t *testing.T) {
	fake := &fakeChatModel{reply: schema.AssistantMessage("<think>nothing to say</think>", nil)}
	svc := newTestService(t, fake)

	_, err := svc.Reply(context.Background(), []chat.Message{{Role: chat.RoleUser, Text: "hi"}}, analysis.Neutral)
	if !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}

func TestReplyTransportError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("connection refused")}
	svc := newTestService(t, fake)

	if _, err := svc.Reply(context.Background(), []chat.Message{{Role: chat.RoleUser, Text: "hi"}}, analysis.Sad); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewServiceRequiresModel(t *testing.T) {
	if _, err := NewService(context.Background(), nil, 0, nil); err == nil {
		t.Fatalf("expected error for nil chat model")
	}
}
