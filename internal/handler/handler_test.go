package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/service"
	"inkflow-backend/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// upstreamStub 模拟 OpenAI 兼容上游
func upstreamStub(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			_, _ = w.Write([]byte(line + "\n\n"))
			flusher.Flush()
		}
	}))
}

func testRouter(t *testing.T, upstreamURL string) *gin.Engine {
	t.Helper()
	cfg := &config.Config{}
	cfg.Upstream.BaseURL = upstreamURL
	cfg.Upstream.ChatPath = "/"
	cfg.Upstream.APIKey = "test-key"
	cfg.Writer.DefaultModel = "deepseek-chat"
	cfg.Writer.OutlineMaxLen = 6000
	cfg.Knowledge.TopN = 8

	coordinator := session.NewCoordinator(cfg.Upstream)
	writerService := service.NewWriterService(cfg, coordinator)

	modelService := service.NewModelService(cfg)
	chatHandler := NewChatHandler(cfg, coordinator, modelService)
	writerHandler := NewWriterHandler(writerService)

	router := gin.New()
	router.POST("/api/ai/stream", chatHandler.StreamChat)
	router.POST("/api/ai/polish", writerHandler.Polish)
	router.POST("/api/ai/write", writerHandler.Write)
	router.POST("/api/ai/merge", writerHandler.Merge)
	router.POST("/api/ai/session/:session_id/pause", chatHandler.PauseSession)
	router.GET("/api/ai/session/:session_id/status", chatHandler.SessionStatus)
	return router
}

func TestStreamChatSSE(t *testing.T) {
	upstream := upstreamStub(t, []string{
		`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
		`data: {"choices":[{"delta":{"content":" world"}}]}`,
		`data: [DONE]`,
	})
	defer upstream.Close()

	router := testRouter(t, upstream.URL)

	body := `{"session_id":"h1","messages":[{"role":"user","content":"hi"}],"model":"deepseek-chat"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	out := w.Body.String()
	assert.Contains(t, out, "Hello world")
	assert.Contains(t, out, `"done":true`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "data: [DONE]"), "流以 [DONE] 收尾: %s", out)
}

// 白名单外的模型在发起上游请求前回落到默认模型
func TestStreamChatFallsBackUnknownModel(t *testing.T) {
	gotModel := make(chan string, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Model string `json:"model"`
		}
		_ = json.Unmarshal(body, &payload)
		gotModel <- payload.Model

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer upstream.Close()

	router := testRouter(t, upstream.URL)

	body := `{"session_id":"m1","messages":[{"role":"user","content":"hi"}],"model":"gpt-4o"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deepseek-chat", <-gotModel)
}

func TestStreamChatBadRequest(t *testing.T) {
	router := testRouter(t, "http://127.0.0.1:0")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamChatUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer upstream.Close()

	router := testRouter(t, upstream.URL)

	body := `{"session_id":"e1","messages":[{"role":"user","content":"hi"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	out := w.Body.String()
	assert.Contains(t, out, "event: error")
	assert.Contains(t, out, "invalid token")
}

func TestWriteStreamsRenderedHTML(t *testing.T) {
	upstream := upstreamStub(t, []string{
		`data: {"choices":[{"delta":{"content":"# 标题"}}]}`,
		`data: [DONE]`,
	})
	defer upstream.Close()

	router := testRouter(t, upstream.URL)

	body := `{"text":"写一段关于合同审查的说明","style":"公文","word_limit":200}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/write", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	out := w.Body.String()
	assert.Contains(t, out, `"done":true`)
	// 写作流每帧附带渲染后的 HTML
	assert.Contains(t, out, "\\u003ch1\\u003e")
}

func TestMergeEndpoint(t *testing.T) {
	router := testRouter(t, "http://127.0.0.1:0")

	body := `{"original_html":"<p id=\"x\">A</p><p>B</p>","generated_html":"<p>A2</p><p id=\"x\">B2</p>"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/merge", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	out := w.Body.String()
	assert.Contains(t, out, "merged_html")
	assert.Equal(t, 1, strings.Count(out, `id=\"x\"`))
}

func TestSessionStatusNotFound(t *testing.T) {
	router := testRouter(t, "http://127.0.0.1:0")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ai/session/unknown/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPauseUnknownSessionIsSafe(t *testing.T) {
	router := testRouter(t, "http://127.0.0.1:0")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/session/unknown/pause", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
