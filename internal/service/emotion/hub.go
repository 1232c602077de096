package emotion

import (
	"log/slog"
	"sync"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
	"github.com/zhouzirui/moodflip/internal/service/events"
)

const subscriberBuffer = 8

// Hub 保存最近一次情绪采样，并把新采样广播给订阅者。
type Hub struct {
	mu          sync.RWMutex
	latest      *emotion.Sample
	subscribers map[chan emotion.Sample]struct{}
	events      events.Publisher
	logger      *slog.Logger
}

// NewHub 创建情绪中心。publisher 为 nil 时不对外发布事件。
func NewHub(publisher events.Publisher, logger *slog.Logger) *Hub {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[chan emotion.Sample]struct{}),
		events:      publisher,
		logger:      logger,
	}
}

// Publish 记录最新采样。慢订阅者会丢帧，不会阻塞采样循环。
func (h *Hub) Publish(sample emotion.Sample) {
	h.mu.Lock()
	s := sample
	h.latest = &s
	for ch := range h.subscribers {
		select {
		case ch <- sample:
		default:
			h.logger.Debug("subscriber lagging, dropping sample", "label", sample.Label)
		}
	}
	h.mu.Unlock()

	h.events.Publish(events.SubjectEmotionSample, sample)
}

// Latest 返回最近一次采样，尚无采样时 ok 为 false。
func (h *Hub) Latest() (emotion.Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return emotion.Sample{}, false
	}
	return *h.latest, true
}

// Subscribe 注册一个订阅者，返回的函数用于取消订阅并关闭通道。
func (h *Hub) Subscribe() (<-chan emotion.Sample, func()) {
	ch := make(chan emotion.Sample, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}
