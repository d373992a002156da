package session

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// StartError 会话启动失败（非 2xx 状态或网络错误）
type StartError struct {
	Status  int
	Message string
}

func (e *StartError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return e.Message
}
