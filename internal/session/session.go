package session

import (
	"context"
	"io"
	"sync"
	"time"

	"inkflow-backend/internal/knowledge"
	"inkflow-backend/internal/model"
	"inkflow-backend/internal/stream"
)

// Session 一次流式请求的全部可变状态。
// 生命周期标志和跨协程读写的指针由 stateMu 保护；
// buffer、useNativeStream、lastMessage 只在持有 pumpMu 时访问（Start 重置槽位时也会先拿 pumpMu）。
type Session struct {
	ID string

	// pumpMu 泵循环重入保护：TryLock 失败说明上一次 Pump 还未返回
	pumpMu sync.Mutex

	// stateMu 保护生命周期标志与 Pause/Status 会并发读到的字段
	stateMu sync.Mutex
	// generation 槽位代次，同 ID 新请求接管槽位时递增，旧代次的泵据此退出
	generation uint64
	modelID    string
	docs       []knowledge.DocItem
	loading    bool
	paused     bool
	done       bool
	startTime  time.Time
	cancel     context.CancelFunc
	body       io.ReadCloser

	// buffer 行解码缓冲，保存上一块结尾的残缺行
	buffer string
	// useNativeStream 为 false 时表示整体响应已读入 buffer，一次性处理
	useNativeStream bool
	// lastMessage 最近一次叠加产生的消息，消息列表被外部改写时用于兜底
	lastMessage *model.AssistantMessage
}

func newSession(id, modelID string) *Session {
	return &Session{
		ID:              id,
		modelID:         modelID,
		paused:          true,
		startTime:       time.Now(),
		useNativeStream: true,
	}
}

func (s *Session) Loading() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.loading
}

func (s *Session) Paused() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.paused
}

func (s *Session) Done() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.done
}

// Elapsed 会话开始至今的秒数
func (s *Session) Elapsed() float64 {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return time.Since(s.startTime).Seconds()
}

// markDone done 单调：一旦置位不再复位
func (s *Session) markDone() {
	s.stateMu.Lock()
	s.done = true
	s.loading = false
	s.paused = true
	s.stateMu.Unlock()
}

// ModelID 本次流使用的模型
func (s *Session) ModelID() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.modelID
}

// gen 当前槽位代次
func (s *Session) gen() uint64 {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.generation
}

func (s *Session) pause() {
	s.stateMu.Lock()
	alreadyPaused := s.paused
	s.paused = true
	cancel := s.cancel
	s.stateMu.Unlock()

	if !alreadyPaused && cancel != nil {
		cancel()
	}
}

// abort 取消在途请求并关闭响应体
func (s *Session) abort() {
	s.stateMu.Lock()
	cancel := s.cancel
	body := s.body
	s.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if body != nil {
		body.Close()
	}
}

func (s *Session) tickMeta() stream.TickMeta {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return stream.TickMeta{StartTime: s.startTime, Model: s.modelID, Docs: s.docs}
}
