package stream

import (
	"strings"
	"time"

	"inkflow-backend/internal/knowledge"
	"inkflow-backend/internal/model"
)

// TickMeta 每帧叠加时的会话侧信息，用于刷新派生的 UI 状态
type TickMeta struct {
	StartTime time.Time
	Model     string
	Docs      []knowledge.DocItem
	Now       time.Time
}

// Apply 将一帧增量叠加到消息副本上并返回新消息。
// 各分支的正文和推理内容只增不减；缺失字段视为空串贡献；
// 分支索引超出当前数量时原位补齐空分支。
func Apply(prev *model.AssistantMessage, payload *model.StreamPayload, meta TickMeta) *model.AssistantMessage {
	if payload == nil || len(payload.Choices) == 0 || prev == nil {
		return prev
	}

	next := prev.Clone()

	for i, choice := range payload.Choices {
		for len(next.Choices) <= i {
			next.Choices = append(next.Choices, model.Choice{})
		}

		if choice.Delta.Content != "" {
			next.Choices[i].Content += choice.Delta.Content
		}
		if choice.Delta.ReasoningContent != "" {
			next.Choices[i].ReasoningContent += choice.Delta.ReasoningContent
			next.Choices[i].ThinkLines = strings.Split(next.Choices[i].ReasoningContent, "\n")
		}
		if choice.FinishReason != "" {
			next.Choices[i].FinishReason = choice.FinishReason
		}
	}

	now := meta.Now
	if now.IsZero() {
		now = time.Now()
	}

	// 刷新派生状态
	next.Loading = true
	next.Pauseing = false
	next.IsSpread = true
	next.ThinkTime = now.Sub(meta.StartTime).Seconds()
	next.IsThink = strings.Contains(meta.Model, "reasoner")
	next.IsRepository = len(meta.Docs) > 0
	next.Docs = meta.Docs
	if len(next.Tools) == 0 {
		next.Tools = []string{"copy"}
	}

	return next
}
