package service

import (
	"context"
	"sort"
	"strings"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/model"
	"inkflow-backend/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

// ModelService 从上游拉取可用模型列表
type ModelService struct {
	cfg    *config.Config
	client *openai.Client
}

func NewModelService(cfg *config.Config) *ModelService {
	clientConfig := openai.DefaultConfig(cfg.Upstream.APIKey)
	if cfg.Upstream.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Upstream.BaseURL, "/") + "/v1"
	}

	return &ModelService{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// ListModels 拉取上游模型列表，失败时回落到配置的默认模型，
// 保证前端下拉框始终有可选项
func (s *ModelService) ListModels(ctx context.Context) ([]model.AIModel, error) {
	list, err := s.client.ListModels(ctx)
	if err != nil {
		logger.Warnf("拉取上游模型列表失败: %v", err)
		return s.fallbackModels(), nil
	}

	models := make([]model.AIModel, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, model.AIModel{
			ID:      m.ID,
			Name:    m.ID,
			Model:   m.ID,
			OwnedBy: m.OwnedBy,
		})
	}

	if len(models) == 0 {
		return s.fallbackModels(), nil
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].ID < models[j].ID
	})

	return models, nil
}

func (s *ModelService) fallbackModels() []model.AIModel {
	var models []model.AIModel
	for _, id := range []string{s.cfg.Writer.DefaultModel, s.cfg.Writer.ReasoningModel} {
		if id == "" {
			continue
		}
		models = append(models, model.AIModel{
			ID:    id,
			Name:  id,
			Model: id,
		})
	}
	if len(models) == 0 {
		models = append(models, model.AIModel{ID: "deepseek-chat", Name: "deepseek-chat", Model: "deepseek-chat"})
	}
	return models
}

// ValidateModel 白名单校验：只放行配置的默认模型和推理模型，
// 空值或名单外的模型回落到默认模型
func (s *ModelService) ValidateModel(modelID string) string {
	def := s.cfg.Writer.DefaultModel
	if modelID == "" {
		return def
	}
	for _, allowed := range []string{def, s.cfg.Writer.ReasoningModel} {
		if allowed != "" && modelID == allowed {
			return modelID
		}
	}
	logger.Warnf("模型 %s 不在白名单内，回落到 %s", modelID, def)
	return def
}
