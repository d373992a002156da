package model

// StreamChatRequest 流式对话请求
type StreamChatRequest struct {
	SessionID    string     `json:"session_id"`
	Messages     []ChatTurn `json:"messages" binding:"required"`
	Model        string     `json:"model"`
	UseKnowledge bool       `json:"use_knowledge"`
}

// PolishRequest AI 润色请求
type PolishRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text" binding:"required"`
	Style     string `json:"style"`
	Model     string `json:"model"`
}

// WriteRequest AI 智能写作请求，text 为写作意图
type WriteRequest struct {
	SessionID string   `json:"session_id"`
	Text      string   `json:"text" binding:"required"`
	Style     string   `json:"style"`
	Model     string   `json:"model"`
	Len       string   `json:"len"`
	Requires  []string `json:"requires"`
	// WordLimit 目标字数，0 表示不限；StrictWordLimit 要求严格等于目标字数
	WordLimit       int  `json:"word_limit"`
	StrictWordLimit bool `json:"strict_word_limit"`
	Reasoning       bool `json:"reasoning"`
}

// ContinueRequest AI 续写请求
type ContinueRequest struct {
	SessionID string `json:"session_id"`
	// HTML 文档全文，服务端决定全文续写还是大纲续写
	HTML  string `json:"html" binding:"required"`
	Style string `json:"style"`
	Model string `json:"model"`
}

// MergeRequest 内容合并请求
type MergeRequest struct {
	OriginalHTML  string `json:"original_html" binding:"required"`
	GeneratedHTML string `json:"generated_html" binding:"required"`
}

// CreateRecordRequest 创建聊天记录
type CreateRecordRequest struct {
	Title string `json:"title"`
}

// AppendMessageRequest 追加记录消息
type AppendMessageRequest struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// BatchRenderRequest 批量更新渲染结果
type BatchRenderRequest struct {
	Renders []RenderUpdate `json:"renders" binding:"required"`
}
