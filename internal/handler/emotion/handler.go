package emotion

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
	"github.com/zhouzirui/moodflip/internal/service/detector"
	"github.com/zhouzirui/moodflip/pkg/utils"
)

// SampleSource 提供最近一次情绪采样。
type SampleSource interface {
	Latest() (emotion.Sample, bool)
}

// SelectionSource 提供检测后端的选择结果。
type SelectionSource interface {
	Selection() *detector.Selection
}

// SamplerStatus 报告采样循环是否在运行。
type SamplerStatus interface {
	Running() bool
}

// Handler 情绪与检测器状态的HTTP处理器
type Handler struct {
	samples    SampleSource
	selections SelectionSource
	sampler    SamplerStatus
}

// New 创建情绪处理器
func New(samples SampleSource, selections SelectionSource, sampler SamplerStatus) *Handler {
	return &Handler{samples: samples, selections: selections, sampler: sampler}
}

// RegisterRoutes 注册情绪相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/emotion", h.handleLatest)
	r.Get("/detector", h.handleDetector)
}

type sampleResponse struct {
	emotion.Sample
	// PromptLabel 是回复提示词实际使用的标签，非规范标签显示为 unknown。
	PromptLabel string `json:"promptLabel"`
}

// handleLatest 返回最近一次采样，尚无采样时返回 204
func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	sample, ok := h.samples.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sampleResponse{
		Sample:      sample,
		PromptLabel: string(sample.PromptLabel()),
	})
}

type detectorResponse struct {
	*detector.Selection
	Sampling bool `json:"sampling"`
}

// handleDetector 返回已提交的后端、各后端探测结果以及模拟模式提示
func (h *Handler) handleDetector(w http.ResponseWriter, r *http.Request) {
	selection := h.selections.Selection()
	if selection == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "detector backend not selected yet")
		return
	}

	resp := detectorResponse{Selection: selection}
	if h.sampler != nil {
		resp.Sampling = h.sampler.Running()
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}
