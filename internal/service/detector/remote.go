package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
)

const defaultFrameMIME = "image/jpeg"

// RemoteBackend talks to a facial-expression inference sidecar over HTTP.
type RemoteBackend struct {
	kind     Kind
	baseURL  string
	client   *http.Client
	interval time.Duration
	percent  bool
	ready    atomic.Bool
}

// NewPrimary returns a backend for a face-api style sidecar: scores in [0,1] under "expressions".
func NewPrimary(baseURL string, client *http.Client, interval time.Duration) *RemoteBackend {
	return newRemote(Primary, baseURL, client, interval, false)
}

// NewSecondary returns a backend for a DeepFace style sidecar: percentages under "emotion".
func NewSecondary(baseURL string, client *http.Client, interval time.Duration) *RemoteBackend {
	return newRemote(Secondary, baseURL, client, interval, true)
}

func newRemote(kind Kind, baseURL string, client *http.Client, interval time.Duration, percent bool) *RemoteBackend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &RemoteBackend{
		kind:     kind,
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:   client,
		interval: interval,
		percent:  percent,
	}
}

type healthResponse struct {
	Ready bool   `json:"ready"`
	Model string `json:"model"`
}

type classifyResponse struct {
	Expressions map[string]float64 `json:"expressions"`
	Emotion     map[string]float64 `json:"emotion"`
	Error       string             `json:"error"`
}

func (b *RemoteBackend) Kind() Kind {
	return b.kind
}

func (b *RemoteBackend) Interval() time.Duration {
	return b.interval
}

// Initialize asks the sidecar whether its model is loaded. An unconfigured endpoint is an
// explicit unavailability signal.
func (b *RemoteBackend) Initialize(ctx context.Context) error {
	if b.ready.Load() {
		return nil
	}
	if b.baseURL == "" {
		return fmt.Errorf("%w: %s endpoint not configured", ErrUnavailable, b.kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrUnavailable, resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if !health.Ready {
		return fmt.Errorf("%w: model not loaded", ErrUnavailable)
	}

	b.ready.Store(true)
	return nil
}

// Sample posts the frame bytes to the sidecar and returns its raw scores.
func (b *RemoteBackend) Sample(ctx context.Context, frame emotion.Frame) (emotion.RawClassification, error) {
	if !b.ready.Load() {
		return nil, ErrNotReady
	}
	if frame.Empty() {
		return nil, ErrNoFrame
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/classify", bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("create classify request: %w", err)
	}
	mime := frame.MIMEType
	if mime == "" {
		mime = defaultFrameMIME
	}
	req.Header.Set("Content-Type", mime)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read classify response: %w", err)
	}

	var payload classifyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("classify status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("decode classify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify status %d: %s", resp.StatusCode, payload.Error)
	}

	scores := payload.Expressions
	if b.percent {
		scores = payload.Emotion
	}
	if len(scores) == 0 {
		return nil, ErrNoFace
	}

	raw := make(emotion.RawClassification, len(scores))
	for label, score := range scores {
		if b.percent {
			score /= 100
		}
		raw[label] = score
	}
	return raw, nil
}
