package model

// FrameKind 流帧的类型标签
type FrameKind int

const (
	// FrameUnrecognized 空行、非 data 行或无法解析的 JSON
	FrameUnrecognized FrameKind = iota
	// FrameDelta 携带增量内容的数据帧
	FrameDelta
	// FrameDone 流结束标记 [DONE]
	FrameDone
)

// Frame 一行流数据解析后的结果
type Frame struct {
	Kind    FrameKind
	Payload *StreamPayload
}

// StreamPayload 上游单帧的 JSON 结构（OpenAI 兼容）
type StreamPayload struct {
	ID      string        `json:"id,omitempty"`
	Choices []ChoiceDelta `json:"choices"`
}

type ChoiceDelta struct {
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

type Delta struct {
	Content          string `json:"content,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}
