package handler

import (
	"net/http"

	"inkflow-backend/internal/model"
	"inkflow-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// RecordHandler 聊天记录的增删查和渲染结果维护
type RecordHandler struct {
	recordService *service.RecordService
}

func NewRecordHandler(recordService *service.RecordService) *RecordHandler {
	return &RecordHandler{
		recordService: recordService,
	}
}

func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var req model.CreateRecordRequest
	// 允许空请求体，使用默认标题
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Title = ""
	}

	record, err := h.recordService.CreateRecord(req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *RecordHandler) GetRecord(c *gin.Context) {
	recordID := c.Param("record_id")

	record, err := h.recordService.GetRecord(recordID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.RecordResponse{
		RecordID:     record.ID,
		Title:        record.Title,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
		MessageCount: len(record.Messages),
	})
}

func (h *RecordHandler) GetMessages(c *gin.Context) {
	recordID := c.Param("record_id")

	messages, err := h.recordService.GetRecordMessages(recordID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record_id": recordID,
		"messages":  messages,
	})
}

func (h *RecordHandler) GetRecordList(c *gin.Context) {
	records, err := h.recordService.GetAllRecords()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
	})
}

func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	recordID := c.Param("record_id")

	if err := h.recordService.DeleteRecord(recordID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
}

func (h *RecordHandler) UpdateRecordTitle(c *gin.Context) {
	recordID := c.Param("record_id")

	var req struct {
		Title string `json:"title" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.recordService.UpdateRecordTitle(recordID, req.Title); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Title updated successfully"})
}

func (h *RecordHandler) AppendMessage(c *gin.Context) {
	recordID := c.Param("record_id")

	var req model.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.recordService.AddMessage(recordID, req.Role, req.Content)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, message)
}

// UpdateMessageRender 更新单条消息的渲染结果
func (h *RecordHandler) UpdateMessageRender(c *gin.Context) {
	recordID := c.Param("record_id")
	messageID := c.Param("message_id")

	var req model.RenderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.recordService.UpdateMessageRender(recordID, messageID, req.HTMLContent, req.RenderTimeMs); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Render updated successfully"})
}

// UpdateMessagesRender 批量更新渲染结果
func (h *RecordHandler) UpdateMessagesRender(c *gin.Context) {
	recordID := c.Param("record_id")

	var req model.BatchRenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.recordService.UpdateMessagesRender(recordID, req.Renders); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Renders updated successfully"})
}

// GetPendingRenders 获取未渲染的 assistant 消息
func (h *RecordHandler) GetPendingRenders(c *gin.Context) {
	recordID := c.Param("record_id")

	pending, err := h.recordService.GetPendingRenders(recordID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record_id": recordID,
		"total":     len(pending),
		"messages":  pending,
	})
}
