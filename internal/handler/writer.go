package handler

import (
	"net/http"

	"inkflow-backend/internal/model"
	"inkflow-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// WriterHandler 润色、续写与内容合并
type WriterHandler struct {
	writerService *service.WriterService
}

func NewWriterHandler(writerService *service.WriterService) *WriterHandler {
	return &WriterHandler{
		writerService: writerService,
	}
}

// Polish 流式润色，每帧附带 Markdown 渲染出的 HTML
func (h *WriterHandler) Polish(c *gin.Context) {
	var req model.PolishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshots, errChan, sessionID := h.writerService.Polish(c.Request.Context(), &req)
	writeSnapshotStream(c, sessionID, snapshots, errChan, "markdown")
}

// Write 流式智能写作
func (h *WriterHandler) Write(c *gin.Context) {
	var req model.WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshots, errChan, sessionID := h.writerService.Write(c.Request.Context(), &req)
	writeSnapshotStream(c, sessionID, snapshots, errChan, "markdown")
}

// Continue 流式续写
func (h *WriterHandler) Continue(c *gin.Context) {
	var req model.ContinueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshots, errChan, sessionID := h.writerService.Continue(c.Request.Context(), &req)
	writeSnapshotStream(c, sessionID, snapshots, errChan, "markdown")
}

// Merge 把生成内容按原文结构合并，非流式
func (h *WriterHandler) Merge(c *gin.Context) {
	var req model.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.writerService.Merge(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// renderSnapshotHTML 把快照消息的正文 Markdown 渲染成 HTML
func renderSnapshotHTML(msg *model.AssistantMessage) (string, error) {
	return service.RenderMarkdown(msg.Text())
}
