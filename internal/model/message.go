package model

import "inkflow-backend/internal/knowledge"

// RoleAssistant AI 消息的角色标识
const RoleAssistant = "assistant"

// ChatTurn 发给上游的单条对话消息
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice 累积中的单个补全分支
type Choice struct {
	// Content 已累积的可见正文
	Content string `json:"content"`
	// ReasoningContent 已累积的推理内容
	ReasoningContent string `json:"reasoning_content,omitempty"`
	// ThinkLines 推理内容按行切分后的展示行
	ThinkLines []string `json:"think_lines,omitempty"`
	// FinishReason 上游给出的结束原因
	FinishReason string `json:"finish_reason,omitempty"`
}

// AssistantMessage 一次流式回复的累积目标，随每个数据帧增长
type AssistantMessage struct {
	ID      string   `json:"id"`
	Role    string   `json:"role"`
	Choices []Choice `json:"choices"`

	// UI 状态
	Loading      bool     `json:"loading"`
	Pauseing     bool     `json:"pauseing"`
	IsSpread     bool     `json:"is_spread"`
	ThinkTime    float64  `json:"think_time"`
	IsThink      bool     `json:"is_think"`
	IsRepository bool     `json:"is_repository"`
	Tools        []string `json:"tools,omitempty"`

	// Docs 检索到的参考文档
	Docs []knowledge.DocItem `json:"docs,omitempty"`
}

// NewAssistantMessage 生成一条空的 AI 消息（对应前端的占位消息）
func NewAssistantMessage(id string) *AssistantMessage {
	return &AssistantMessage{
		ID:       id,
		Role:     RoleAssistant,
		Choices:  make([]Choice, 0),
		Loading:  true,
		IsSpread: true,
		Tools:    []string{"copy"},
	}
}

// Clone 深拷贝消息，累积器每帧在副本上叠加
func (m *AssistantMessage) Clone() *AssistantMessage {
	if m == nil {
		return nil
	}
	out := *m
	out.Choices = make([]Choice, len(m.Choices))
	for i, c := range m.Choices {
		out.Choices[i] = c
		out.Choices[i].ThinkLines = append([]string(nil), c.ThinkLines...)
	}
	out.Tools = append([]string(nil), m.Tools...)
	out.Docs = append([]knowledge.DocItem(nil), m.Docs...)
	return &out
}

// Text 第一个分支的可见正文，无分支时为空串
func (m *AssistantMessage) Text() string {
	if m == nil || len(m.Choices) == 0 {
		return ""
	}
	return m.Choices[0].Content
}
