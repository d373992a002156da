package handler

import (
	"net/http"

	"inkflow-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ModelHandler 上游模型列表
type ModelHandler struct {
	modelService *service.ModelService
}

func NewModelHandler(modelService *service.ModelService) *ModelHandler {
	return &ModelHandler{
		modelService: modelService,
	}
}

func (h *ModelHandler) ListModels(c *gin.Context) {
	models, err := h.modelService.ListModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models": models,
	})
}
