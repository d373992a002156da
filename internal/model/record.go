package model

import "time"

// RecordMessage 聊天记录中的单条消息
type RecordMessage struct {
	ID           string    `json:"id"`
	RecordID     string    `json:"record_id"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`                // Markdown 原文
	HTMLContent  string    `json:"html_content,omitempty"` // 渲染后的 HTML
	IsRendered   bool      `json:"is_rendered"`
	RenderTimeMs int64     `json:"render_time_ms,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Record 一次对话的持久化记录
type Record struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Messages  []RecordMessage `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RenderUpdate 单条消息的渲染结果更新
type RenderUpdate struct {
	MessageID    string `json:"message_id" binding:"required"`
	HTMLContent  string `json:"html_content" binding:"required"`
	RenderTimeMs int64  `json:"render_time_ms"`
}
