package handler

import (
	"errors"
	"net/http"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/knowledge"
	"inkflow-backend/internal/model"
	"inkflow-backend/internal/service"
	"inkflow-backend/internal/session"
	"inkflow-backend/internal/utils"
	"inkflow-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler 流式对话与会话控制
type ChatHandler struct {
	cfg         *config.Config
	coordinator *session.Coordinator
	kb          *knowledge.Client
	models      *service.ModelService
}

func NewChatHandler(cfg *config.Config, coordinator *session.Coordinator, models *service.ModelService) *ChatHandler {
	return &ChatHandler{
		cfg:         cfg,
		coordinator: coordinator,
		kb:          knowledge.NewClient(cfg.Knowledge),
		models:      models,
	}
}

// StreamChat 透传消息列表发起流式对话，SSE 下发消息快照
func (h *ChatHandler) StreamChat(c *gin.Context) {
	var req model.StreamChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	// 请求携带的模型过白名单，名单外回落到默认模型
	modelID := h.models.ValidateModel(req.Model)

	// 可选知识库增强：用最后一条 user 消息检索，检索失败不阻塞对话
	var docs []knowledge.DocItem
	if req.UseKnowledge {
		if question := lastUserContent(req.Messages); question != "" {
			docs = h.kb.QueryQuietly(c.Request.Context(), question)
		}
	}

	snapshots, errChan := h.coordinator.Run(c.Request.Context(), session.StartParams{
		SessionID: sessionID,
		Messages:  req.Messages,
		Model:     modelID,
		AuthToken: c.GetHeader("Authorization"),
		Docs:      docs,
	})

	writeSnapshotStream(c, sessionID, snapshots, errChan, "")
}

// writeSnapshotStream 把快照通道转成 SSE 事件流。
// renderMarkdown 非空的接口每帧额外带上渲染后的 HTML
func writeSnapshotStream(c *gin.Context, sessionID string, snapshots <-chan session.Snapshot, errChan <-chan error, renderMode string) {
	sseWriter := utils.NewSSEWriter(c.Writer)

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				// 通道关闭前可能已送出错误，补发后再收尾
				if err := drainErr(errChan); err != nil {
					writeStreamError(sseWriter, sessionID, err)
				}
				sseWriter.Close()
				return
			}

			event := model.StreamEvent{
				SessionID: sessionID,
				Message:   snap.Message,
				Done:      snap.Done,
			}
			if renderMode == "markdown" && snap.Message != nil {
				if html, err := renderSnapshotHTML(snap.Message); err == nil {
					event.HTML = html
				}
			}

			if err := sseWriter.WriteJSON("message", event); err != nil {
				logger.Errorf("SSE 写入失败: %v", err)
				return
			}

		case err := <-errChan:
			if err == nil {
				continue
			}
			writeStreamError(sseWriter, sessionID, err)
			sseWriter.Close()
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}

func drainErr(errChan <-chan error) error {
	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

func writeStreamError(sseWriter *utils.SSEWriter, sessionID string, err error) {
	status := http.StatusBadGateway
	var startErr *session.StartError
	if errors.As(err, &startErr) && startErr.Status > 0 {
		status = startErr.Status
	}
	sseWriter.WriteJSON("error", gin.H{
		"session_id": sessionID,
		"error":      err.Error(),
		"status":     status,
	})
}

// PauseSession 暂停指定会话，重复暂停等价于一次
func (h *ChatHandler) PauseSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	h.coordinator.Pause(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"paused":     true,
	})
}

// SessionStatus 查询会话状态
func (h *ChatHandler) SessionStatus(c *gin.Context) {
	sessionID := c.Param("session_id")

	status, err := h.coordinator.Status(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

// DeleteSession 释放会话，连带取消仍在进行的流
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	h.coordinator.Cleanup(sessionID)
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

func lastUserContent(messages []model.ChatTurn) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
