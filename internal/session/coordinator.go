package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/knowledge"
	"inkflow-backend/internal/model"
	"inkflow-backend/internal/stream"
	"inkflow-backend/internal/utils"
	"inkflow-backend/pkg/logger"
)

// PumpResult 单次泵动作的结果
type PumpResult int

const (
	// PumpIncomplete 本次没有消费到结束标记，流还在进行中
	PumpIncomplete PumpResult = iota
	// PumpCompleted 会话已到达 done 状态
	PumpCompleted
	// PumpCancelled 读取因外部暂停被取消，会话保持 paused
	PumpCancelled
)

const readChunkSize = 4096

// timeNow 便于测试替换
var timeNow = time.Now

// Coordinator 持有全部会话的注册表并驱动会话生命周期。
// 调用方持有 Coordinator 实例，没有包级全局状态。
type Coordinator struct {
	cfg    config.UpstreamConfig
	client *http.Client

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewCoordinator(cfg config.UpstreamConfig) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		client:   utils.NewStreamHTTPClient(),
		sessions: make(map[string]*Session),
	}
}

// StartParams 发起一次流式补全的参数
type StartParams struct {
	SessionID string
	Messages  []model.ChatTurn
	Model     string
	// AuthToken 调用方凭证，为空时使用配置的 API Key
	AuthToken string
	Docs      []knowledge.DocItem
}

// getOrCreate 按会话 ID 惰性创建注册表项
func (c *Coordinator) getOrCreate(sessionID, modelID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[sessionID]; ok {
		return s
	}
	s := newSession(sessionID, modelID)
	c.sessions[sessionID] = s
	return s
}

func (c *Coordinator) lookup(sessionID string) *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[sessionID]
}

// Start 发起上游流式请求并把会话置为 streaming 状态。
// 同一 ID 上已有在途流时先中止旧流再复用注册表槽位。
func (c *Coordinator) Start(ctx context.Context, p StartParams) (*Session, error) {
	if p.SessionID == "" {
		p.SessionID = "chat-" + uuid.New().String()
	}

	s := c.getOrCreate(p.SessionID, p.Model)
	s.abort()

	// 复用槽位前等在途 Pump 退出，重置期间的 TryLock 会直接落空
	s.pumpMu.Lock()
	defer s.pumpMu.Unlock()

	reqCtx, cancel := context.WithCancel(ctx)

	// 重置生命周期，复用槽位即视为全新请求
	s.stateMu.Lock()
	s.generation++
	s.modelID = p.Model
	s.docs = p.Docs
	s.loading = true
	s.paused = false
	s.done = false
	s.startTime = timeNow()
	s.cancel = cancel
	s.body = nil
	s.stateMu.Unlock()
	s.buffer = ""
	s.lastMessage = nil
	s.useNativeStream = true

	// 只提交内容非空的消息
	validMessages := make([]model.ChatTurn, 0, len(p.Messages))
	for _, m := range p.Messages {
		if m.Content != "" {
			validMessages = append(validMessages, m)
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":    p.Model,
		"messages": validMessages,
		"stream":   true,
	})
	if err != nil {
		c.failStart(s)
		return nil, &StartError{Message: err.Error()}
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + c.cfg.ChatPath
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		c.failStart(s)
		return nil, &StartError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.AuthToken != "" {
		req.Header.Set("Authorization", p.AuthToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	logger.WithFields(logrus.Fields{
		"session_id": p.SessionID,
		"model":      p.Model,
	}).Debugf("发起流式请求, 消息数: %d", len(validMessages))

	resp, err := c.client.Do(req)
	if err != nil {
		c.failStart(s)
		return nil, &StartError{Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.failStart(s)
		msg := extractErrorMessage(errBody)
		if msg == "" {
			msg = resp.Status
		}
		logger.Errorf("会话 %s 上游请求失败: %d %s", p.SessionID, resp.StatusCode, msg)
		return nil, &StartError{Status: resp.StatusCode, Message: msg}
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		s.stateMu.Lock()
		s.body = resp.Body
		s.stateMu.Unlock()
		return s, nil
	}

	// 整体响应回退：一次读完，首次 Pump 时走与增量路径相同的逐行处理
	full, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		c.failStart(s)
		return nil, &StartError{Message: err.Error()}
	}
	s.buffer = string(full)
	s.useNativeStream = false

	return s, nil
}

// failStart 启动失败后的状态：非 loading、paused，等待调用方重试或放弃
func (c *Coordinator) failStart(s *Session) {
	s.stateMu.Lock()
	s.loading = false
	s.paused = true
	s.stateMu.Unlock()
}

// extractErrorMessage 从错误响应体里提取结构化错误信息
func extractErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var structured struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if structured.Message != "" {
			return structured.Message
		}
		if structured.Error.Message != "" {
			return structured.Error.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// Pump 执行一次读取-解析-叠加。
// 会话不存在、已结束、已暂停或上一次泵还没返回时立即返回不产生副作用。
func (c *Coordinator) Pump(sessionID string, list *[]*model.AssistantMessage) (PumpResult, error) {
	s := c.lookup(sessionID)
	if s == nil {
		return PumpIncomplete, ErrSessionNotFound
	}
	return c.pumpSession(s, s.gen(), list)
}

// pumpSession 带代次校验的泵。槽位被同 ID 新请求接管后，
// 旧代次的泵以取消结果退出，新流的帧不会落进旧驱动方的列表
func (c *Coordinator) pumpSession(s *Session, gen uint64, list *[]*model.AssistantMessage) (PumpResult, error) {
	if s.Done() {
		return PumpCompleted, nil
	}
	if s.Paused() {
		return PumpIncomplete, nil
	}
	if !s.pumpMu.TryLock() {
		// 上一次泵还在途中，本次观察到守卫后直接退出
		return PumpIncomplete, nil
	}
	defer s.pumpMu.Unlock()

	if s.gen() != gen {
		return PumpCancelled, nil
	}

	if !s.useNativeStream {
		// 整体响应：缓冲里已是完整内容，逐行喂给同一条解析路径
		c.feedLines(s, strings.Split(s.buffer, "\n"), list)
		s.buffer = ""
		s.markDone()
		c.finalize(s, list)
		return PumpCompleted, nil
	}

	s.stateMu.Lock()
	body := s.body
	s.stateMu.Unlock()
	if body == nil {
		logger.Errorf("会话 %s 缺少响应体读取器", s.ID)
		return PumpIncomplete, nil
	}

	buf := make([]byte, readChunkSize)
	n, err := body.Read(buf)

	if n > 0 {
		s.buffer += string(buf[:n])
		lines := strings.Split(s.buffer, "\n")
		// 末尾可能是半行，留到下一块
		s.buffer = lines[len(lines)-1]
		c.feedLines(s, lines[:len(lines)-1], list)
	}

	if err != nil {
		switch {
		case errors.Is(err, io.EOF):
			s.markDone()
			c.finalize(s, list)
			return PumpCompleted, nil
		case errors.Is(err, context.Canceled):
			// 外部暂停触发的取消：中性结果，会话保持 paused
			return PumpCancelled, nil
		default:
			// 其他读错误：fail-stop，不自动重试，已累积内容保持可见
			logger.Errorf("会话 %s 流读取失败: %v", s.ID, err)
			s.markDone()
			c.finalize(s, list)
			return PumpCompleted, err
		}
	}

	if s.Done() {
		c.finalize(s, list)
		return PumpCompleted, nil
	}
	return PumpIncomplete, nil
}

// feedLines 把完整行逐条过帧解析器并叠加到消息列表末尾
func (c *Coordinator) feedLines(s *Session, lines []string, list *[]*model.AssistantMessage) {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		frame := stream.ParseLine(line)
		switch frame.Kind {
		case model.FrameDone:
			s.markDone()
			return
		case model.FrameDelta:
			c.applyFrame(s, frame.Payload, list)
		}
	}
}

// applyFrame 在消息列表末尾就地叠加一帧。
// 末尾不是 AI 消息时，优先复用会话缓存的消息，否则补一条新的。
func (c *Coordinator) applyFrame(s *Session, payload *model.StreamPayload, list *[]*model.AssistantMessage) {
	if list == nil {
		return
	}

	var target *model.AssistantMessage
	if len(*list) > 0 && (*list)[len(*list)-1].Role == model.RoleAssistant {
		target = (*list)[len(*list)-1]
	} else if s.lastMessage != nil {
		*list = append(*list, s.lastMessage)
		target = s.lastMessage
	} else {
		target = model.NewAssistantMessage(uuid.New().String())
		*list = append(*list, target)
	}

	updated := stream.Apply(target, payload, s.tickMeta())
	(*list)[len(*list)-1] = updated
	s.lastMessage = updated
}

// finalize 会话结束时清理末尾消息的 loading 状态并盖上耗时
func (c *Coordinator) finalize(s *Session, list *[]*model.AssistantMessage) {
	if list == nil || len(*list) == 0 {
		return
	}
	last := (*list)[len(*list)-1]
	if last == nil {
		return
	}
	last.Loading = false
	last.Pauseing = true
	last.ThinkTime = s.Elapsed()
}

// Pause 幂等暂停：取消在途读取，会话保持 paused 而非 done。
// 会话不存在或已暂停/已结束时为空操作。
func (c *Coordinator) Pause(sessionID string) {
	s := c.lookup(sessionID)
	if s == nil {
		return
	}
	s.pause()
	logger.WithFields(logrus.Fields{"session_id": sessionID}).Info("会话已暂停")
}

func (c *Coordinator) IsPaused(sessionID string) bool {
	s := c.lookup(sessionID)
	if s == nil {
		return false
	}
	return s.Paused()
}

// Status 查询会话状态，不存在时返回 ErrSessionNotFound
func (c *Coordinator) Status(sessionID string) (*model.SessionStatusResponse, error) {
	s := c.lookup(sessionID)
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return &model.SessionStatusResponse{
		SessionID: sessionID,
		Loading:   s.Loading(),
		Paused:    s.Paused(),
		Done:      s.Done(),
		Model:     s.ModelID(),
		Elapsed:   s.Elapsed(),
	}, nil
}

// Cleanup 中止会话并删除注册表项。
// 注册表不做自动过期，槽位由调用方显式回收。
func (c *Coordinator) Cleanup(sessionID string) {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if ok {
		delete(c.sessions, sessionID)
	}
	c.mu.Unlock()

	if ok {
		s.abort()
	}
}

// Count 当前注册表中的会话数
func (c *Coordinator) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}
