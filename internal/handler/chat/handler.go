package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	analysis "github.com/zhouzirui/moodflip/internal/analysis/emotion"
	"github.com/zhouzirui/moodflip/internal/model/emotion"
	chatService "github.com/zhouzirui/moodflip/internal/service/chat"
	"github.com/zhouzirui/moodflip/pkg/utils"
)

// 单条消息请求体上限
const maxMessageBody = 64 << 10

// EmotionSource 提供最近一次情绪采样。
type EmotionSource interface {
	Latest() (emotion.Sample, bool)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	emotions EmotionSource
	logger   *slog.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, emotions EmotionSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chatSvc:  chatSvc,
		emotions: emotions,
		logger:   logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Delete("/session/{sessionID}", h.handleClose)
	r.Get("/session/{sessionID}/messages", h.handleTranscript)
	r.Post("/session/{sessionID}/messages", h.handleSubmit)
}

// handleCreateSession 创建会话，返回带问候语的初始快照
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, snapshot)
}

// handleTranscript 返回按顺序排列的消息以及 composing 状态
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.chatSvc.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

// handleSubmit 提交一轮用户消息，并同步等待回复落定
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBody)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "message too large")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	current := h.currentEmotion()

	turn, err := h.chatSvc.Submit(r.Context(), sessionID, payload.Text, current)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.logger.Info("chat turn settled",
		"session", sessionID,
		"emotion", current,
		"fallback", turn.Fallback)
	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleClose 销毁会话
func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentEmotion 尚无采样时按 unknown 处理
func (h *Handler) currentEmotion() analysis.Label {
	if h.emotions == nil {
		return analysis.Unknown
	}
	sample, ok := h.emotions.Latest()
	if !ok {
		return analysis.Unknown
	}
	return sample.Label
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrSessionNotFound), errors.Is(err, chatService.ErrSessionClosed):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrComposing):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled):
		utils.RespondError(w, http.StatusRequestTimeout, err.Error())
	default:
		h.logger.Error("chat request failed", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
