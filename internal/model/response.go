package model

import "time"

// StreamEvent SSE 下发给前端的事件体
type StreamEvent struct {
	SessionID string            `json:"session_id"`
	Message   *AssistantMessage `json:"message,omitempty"`
	// HTML 写作类接口每帧渲染出的 HTML（Markdown 转换结果）
	HTML string `json:"html,omitempty"`
	Done bool   `json:"done"`
}

// SessionStatusResponse 会话状态查询结果
type SessionStatusResponse struct {
	SessionID string  `json:"session_id"`
	Loading   bool    `json:"loading"`
	Paused    bool    `json:"paused"`
	Done      bool    `json:"done"`
	Model     string  `json:"model"`
	Elapsed   float64 `json:"elapsed"`
}

// MergeResponse 内容合并结果
type MergeResponse struct {
	MergedHTML string `json:"merged_html"`
	// Fallback 为 true 时表示对齐未生效，返回的是生成内容本身
	Fallback bool `json:"fallback"`
}

// AIModel 供前端展示的模型信息
type AIModel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Model   string `json:"model"`
	OwnedBy string `json:"ownedBy,omitempty"`
}

// RecordResponse 聊天记录（不含消息体）
type RecordResponse struct {
	RecordID     string    `json:"record_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}
