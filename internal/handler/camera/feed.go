package camera

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
	"github.com/zhouzirui/moodflip/internal/service/detector"
)

// ErrFeedClosed is returned when a closed feed is reopened.
var ErrFeedClosed = errors.New("camera feed closed")

// Feed 保存一个摄像头连接推送的最新一帧，只能被打开一次。
type Feed struct {
	mu     sync.Mutex
	latest emotion.Frame
	has    bool
	opened bool
	closed bool
}

var (
	_ detector.FrameSource = (*Feed)(nil)
	_ detector.FrameStream = (*Feed)(nil)
)

// NewFeed 创建空的摄像头帧缓存。
func NewFeed() *Feed {
	return &Feed{}
}

// Push 替换最新帧，关闭后丢弃。
func (f *Feed) Push(data []byte, mimeType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.latest = emotion.Frame{Data: data, MIMEType: mimeType, CapturedAt: time.Now().UTC()}
	f.has = true
}

func (f *Feed) Open(context.Context) (detector.FrameStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.opened {
		return nil, ErrFeedClosed
	}
	f.opened = true
	return f, nil
}

func (f *Feed) Latest() (emotion.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.has
}

// Close 释放缓存的帧，之后的 Push 与 Open 都会被忽略。
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.latest = emotion.Frame{}
	f.has = false
	return nil
}

// Closed 报告 feed 是否已被释放。
func (f *Feed) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
