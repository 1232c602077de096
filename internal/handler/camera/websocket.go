package camera

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
	"github.com/zhouzirui/moodflip/internal/service/detector"
	"github.com/zhouzirui/moodflip/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	maxFrameSize = 4 << 20
)

// Sampler 拥有采样循环，同一时刻只允许一个摄像头。
type Sampler interface {
	Run(ctx context.Context, source detector.FrameSource) error
	Running() bool
}

// Subscriber 提供采样结果的订阅。
type Subscriber interface {
	Subscribe() (<-chan emotion.Sample, func())
}

// WebSocketHandler 接收浏览器推送的摄像头帧，并回推情绪采样
type WebSocketHandler struct {
	sampler  Sampler
	hub      Subscriber
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建摄像头 WebSocket 处理器
func NewWebSocketHandler(sampler Sampler, hub Subscriber, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		sampler: sampler,
		hub:     hub,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 4 << 10,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/camera", h.handleWebSocket)
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// conn 串行化对 websocket 的写操作。
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *conn) writeError(message string) {
	_ = c.writeJSON(outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	})
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理摄像头连接：连接存续期间独占采样循环
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.sampler.Running() {
		utils.RespondError(w, http.StatusConflict, "another camera is already streaming")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()
	c := &conn{ws: ws}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed := NewFeed()
	samplerDone := make(chan struct{})
	go func() {
		defer close(samplerDone)
		err := h.sampler.Run(ctx, feed)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, detector.ErrSamplerBusy):
			c.writeError("another camera is already streaming")
		case errors.Is(err, detector.ErrNotSelected):
			c.writeError("emotion detector is not ready yet")
		default:
			h.logger.Warn("sampling loop stopped", "error", err)
		}
		// unblock the read loop
		ws.Close()
	}()
	defer func() {
		cancel()
		<-samplerDone
	}()

	samples, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	go h.forwardSamples(ctx, c, samples)
	go h.pingLoop(ctx, c)

	h.logger.Info("camera connected", "remote", r.RemoteAddr)
	defer h.logger.Info("camera disconnected", "remote", r.RemoteAddr)

	ws.SetReadLimit(maxFrameSize)
	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	_ = c.writeJSON(outgoingMessage{Type: "connected", Timestamp: time.Now().Unix()})

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("camera read error", "error", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(readTimeout))

		if messageType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		feed.Push(data, http.DetectContentType(data))
	}
}

func (h *WebSocketHandler) forwardSamples(ctx context.Context, c *conn, samples <-chan emotion.Sample) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-samples:
			if !ok {
				return
			}
			if err := c.writeJSON(outgoingMessage{Type: "sample", Data: sample, Timestamp: time.Now().Unix()}); err != nil {
				return
			}
		}
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
