package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	analysis "github.com/zhouzirui/moodflip/internal/analysis/emotion"
	"github.com/zhouzirui/moodflip/internal/model/chat"
	"github.com/zhouzirui/moodflip/internal/service/events"
)

const (
	// Greeting seeds every new conversation.
	Greeting = "Hi! Show me your face and tell me how you feel. I promise to disagree."
	// Fallback replaces the bot reply whenever the reply engine fails.
	Fallback = "Sorry, I'm having trouble responding right now."
)

var (
	ErrEmptyMessage    = errors.New("message text is required")
	ErrComposing       = errors.New("a reply is already being composed")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed before the reply arrived")
)

// Replier produces a reply for history in the register opposite to current.
type Replier interface {
	Reply(ctx context.Context, history []chat.Message, current analysis.Label) (string, error)
}

// Turn is the pair of messages appended by one successful submission.
type Turn struct {
	User     chat.Message `json:"user"`
	Bot      chat.Message `json:"bot"`
	Fallback bool         `json:"fallback"`
}

type conversation struct {
	mu        sync.Mutex
	session   chat.Session
	messages  []chat.Message
	composing bool
	closed    bool
}

// Service encapsulates conversation state management.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]*conversation

	replier Replier
	events  events.Publisher
	logger  *slog.Logger
}

// NewService bootstraps the in-memory chat service.
func NewService(replier Replier, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		conversations: make(map[string]*conversation),
		replier:       replier,
		events:        publisher,
		logger:        logger,
	}
}

// CreateSession provisions an anonymous conversation seeded with the greeting.
func (s *Service) CreateSession(_ context.Context) (chat.Snapshot, error) {
	now := time.Now().UTC()
	session := chat.Session{ID: uuid.NewString(), CreatedAt: now}

	conv := &conversation{
		session:  session,
		messages: make([]chat.Message, 0, 16),
	}
	conv.messages = append(conv.messages, newMessage(session.ID, chat.RoleBot, Greeting, ""))

	s.mu.Lock()
	s.conversations[session.ID] = conv
	s.mu.Unlock()

	s.logger.Info("session created", "session", session.ID)
	return conv.snapshot(), nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return conv.session, nil
}

// Snapshot returns the transcript in insertion order and the composing flag.
func (s *Service) Snapshot(_ context.Context, sessionID string) (chat.Snapshot, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return chat.Snapshot{}, err
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.snapshot(), nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	snapshot, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot.Messages, nil
}

// Submit appends the user message immediately, asks the replier for a response and appends
// exactly one bot message once it settles: the reply, or Fallback on any failure. Only one
// submission per session may be outstanding; a second one gets ErrComposing.
func (s *Service) Submit(ctx context.Context, sessionID, text string, current analysis.Label) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	conv, err := s.lookup(sessionID)
	if err != nil {
		return Turn{}, err
	}

	conv.mu.Lock()
	if conv.closed {
		conv.mu.Unlock()
		return Turn{}, ErrSessionNotFound
	}
	if conv.composing {
		conv.mu.Unlock()
		return Turn{}, ErrComposing
	}
	user := newMessage(sessionID, chat.RoleUser, text, "")
	conv.messages = append(conv.messages, user)
	conv.composing = true
	history := append([]chat.Message(nil), conv.messages...)
	conv.mu.Unlock()

	turn := Turn{User: user}
	settled := false
	defer func() {
		if !settled {
			conv.mu.Lock()
			conv.composing = false
			conv.mu.Unlock()
		}
	}()

	reply, replyErr := s.requestReply(context.WithoutCancel(ctx), history, current)

	bot := newMessage(sessionID, chat.RoleBot, reply, "")
	if replyErr != nil {
		s.logger.Warn("reply failed, using fallback", "session", sessionID, "error", replyErr)
		bot.Text = Fallback
		turn.Fallback = true
	} else if current.Canonical() {
		bot.Emotion = current
	}

	conv.mu.Lock()
	conv.composing = false
	settled = true
	if conv.closed {
		conv.mu.Unlock()
		s.logger.Debug("discarding reply for closed session", "session", sessionID)
		return turn, ErrSessionClosed
	}
	conv.messages = append(conv.messages, bot)
	conv.mu.Unlock()

	turn.Bot = bot
	s.events.Publish(events.SubjectChatTurn, turn)
	return turn, nil
}

// Close tears the conversation down. A reply still in flight is discarded on arrival.
func (s *Service) Close(_ context.Context, sessionID string) error {
	s.mu.Lock()
	conv, ok := s.conversations[sessionID]
	delete(s.conversations, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	conv.mu.Lock()
	conv.closed = true
	conv.mu.Unlock()

	s.logger.Info("session closed", "session", sessionID)
	return nil
}

func (s *Service) requestReply(ctx context.Context, history []chat.Message, current analysis.Label) (reply string, err error) {
	if s.replier == nil {
		return "", errors.New("no reply engine configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reply panicked: %v", r)
		}
	}()

	reply, err = s.replier.Reply(ctx, history, current)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty reply")
	}
	return reply, err
}

func (s *Service) lookup(sessionID string) (*conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return conv, nil
}

// snapshot must be called with c.mu held or before c is shared.
func (c *conversation) snapshot() chat.Snapshot {
	return chat.Snapshot{
		Session:   c.session,
		Messages:  append([]chat.Message(nil), c.messages...),
		Composing: c.composing,
	}
}

func newMessage(sessionID string, role chat.Role, text string, label analysis.Label) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		Emotion:   label,
		CreatedAt: time.Now().UTC(),
	}
}
