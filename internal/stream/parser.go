package stream

import (
	"encoding/json"
	"strings"

	"inkflow-backend/internal/model"
	"inkflow-backend/pkg/logger"
)

const (
	dataPrefix = "data: "
	doneToken  = "[DONE]"
)

// ParseLine 解析流响应中的一行。
// 空行、非 data 行、损坏的 JSON 都返回 Unrecognized，由调用方跳过，
// 解析失败不中断整条流（分块边界可能产生残缺行）。
func ParseLine(line string) model.Frame {
	if !strings.HasPrefix(line, dataPrefix) {
		return model.Frame{Kind: model.FrameUnrecognized}
	}

	data := strings.TrimSpace(line[len(dataPrefix):])
	if data == doneToken {
		return model.Frame{Kind: model.FrameDone}
	}

	var payload model.StreamPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		logger.Warnf("流数据帧解析失败: %v, 内容: %s", err, line)
		return model.Frame{Kind: model.FrameUnrecognized}
	}

	return model.Frame{Kind: model.FrameDelta, Payload: &payload}
}
