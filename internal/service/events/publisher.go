package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published on the bus.
const (
	SubjectDetectorSelected = "moodflip.detector.selected"
	SubjectEmotionSample    = "moodflip.emotion.sample"
	SubjectChatTurn         = "moodflip.chat.turn"
)

// Publisher fans domain events out to external observers. Delivery is best effort.
type Publisher interface {
	Publish(subject string, payload any)
	Close() error
}

// Connect returns a NATS-backed publisher, or a no-op publisher when url is empty.
func Connect(url, token string, logger *slog.Logger) (Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return Noop{}, nil
	}

	opts := []nats.Option{
		nats.Name("moodflip"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	logger.Info("nats connected", "url", nc.ConnectedUrl())
	return &natsPublisher{conn: nc, logger: logger}, nil
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func (p *natsPublisher) Publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("failed to encode event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func (p *natsPublisher) Close() error {
	return p.conn.Drain()
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(string, any) {}

func (Noop) Close() error { return nil }
