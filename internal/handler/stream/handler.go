package stream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
	"github.com/zhouzirui/moodflip/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Subscriber exposes the sample feed the stream fans out.
type Subscriber interface {
	Latest() (emotion.Sample, bool)
	Subscribe() (<-chan emotion.Sample, func())
}

// Handler streams emotion samples to the browser via Server-Sent Events
type Handler struct {
	hub       Subscriber
	heartbeat time.Duration
	logger    *slog.Logger
}

// New creates a new stream handler
func New(hub Subscriber, heartbeat time.Duration, logger *slog.Logger) *Handler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hub: hub, heartbeat: heartbeat, logger: logger}
}

// RegisterRoutes registers the SSE endpoint
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/emotion/stream", h.handleStream)
}

// handleStream replays the latest sample, then forwards every new one until the client leaves
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	samples, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	h.logger.Debug("emotion stream opened", "remote", r.RemoteAddr)
	defer h.logger.Debug("emotion stream closed", "remote", r.RemoteAddr)

	if sample, ok := h.hub.Latest(); ok {
		if err := utils.SendSSEEvent(w, flusher, "sample", sample); err != nil {
			return
		}
	} else if err := utils.SendSSEComment(w, flusher, "waiting for first sample"); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-samples:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "sample", sample); err != nil {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
