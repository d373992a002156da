package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkflow-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelServiceConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Upstream.BaseURL = baseURL
	cfg.Upstream.APIKey = "test-key"
	cfg.Writer.DefaultModel = "deepseek-chat"
	cfg.Writer.ReasoningModel = "deepseek-reasoner"
	return cfg
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"deepseek-reasoner","owned_by":"deepseek"},{"id":"deepseek-chat","owned_by":"deepseek"}]}`))
	}))
	defer srv.Close()

	svc := NewModelService(modelServiceConfig(srv.URL))
	models, err := svc.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "deepseek-chat", models[0].ID, "按 ID 排序")
	assert.Equal(t, "deepseek", models[0].OwnedBy)
}

// 上游不可达时回落到配置的默认模型
func TestListModelsFallback(t *testing.T) {
	svc := NewModelService(modelServiceConfig("http://127.0.0.1:0"))

	models, err := svc.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "deepseek-chat", models[0].ID)
	assert.Equal(t, "deepseek-reasoner", models[1].ID)
}

func TestValidateModel(t *testing.T) {
	svc := NewModelService(modelServiceConfig(""))
	assert.Equal(t, "deepseek-chat", svc.ValidateModel(""))
	assert.Equal(t, "deepseek-chat", svc.ValidateModel("deepseek-chat"))
	assert.Equal(t, "deepseek-reasoner", svc.ValidateModel("deepseek-reasoner"))
	// 白名单外的模型回落到默认模型
	assert.Equal(t, "deepseek-chat", svc.ValidateModel("qwen-max"))
}
