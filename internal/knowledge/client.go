package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/utils"
	"inkflow-backend/pkg/logger"
)

// DocItem 知识库返回的知识片段
type DocItem struct {
	Distance    float64 `json:"_distance,omitempty"`
	Filename    string  `json:"filename,omitempty"`
	Filepath    string  `json:"filepath,omitempty"`
	PersonList  string  `json:"person_list,omitempty"`
	SecretLevel string  `json:"secret_level,omitempty"`
	Text        string  `json:"text,omitempty"`
	Type        string  `json:"type,omitempty"`
	URL         string  `json:"url,omitempty"`
}

type queryResponse struct {
	Code      int       `json:"code"`
	Data      []DocItem `json:"data"`
	CleanData []DocItem `json:"clean_data"`
	Message   string    `json:"message"`
}

// Client 知识库检索客户端
type Client struct {
	cfg        config.KnowledgeConfig
	httpClient *http.Client
}

func NewClient(cfg config.KnowledgeConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: utils.NewHTTPClient(cfg.Timeout),
	}
}

// QueryDocuments 按问题文本检索知识片段，clean_data 优先
func (c *Client) QueryDocuments(ctx context.Context, question string) ([]DocItem, error) {
	if question == "" || c.cfg.BaseURL == "" {
		return nil, nil
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + c.cfg.QueryPath
	params := url.Values{}
	params.Set("question", question)
	params.Set("classifyList", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("知识库请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result queryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("知识库响应解析失败: %w", err)
	}

	if result.Code != 200 {
		if result.Message != "" {
			return nil, fmt.Errorf("知识库查询失败: %s", result.Message)
		}
		return nil, fmt.Errorf("知识库查询失败: code=%d", result.Code)
	}

	if len(result.CleanData) > 0 {
		return result.CleanData, nil
	}
	return result.Data, nil
}

// QueryQuietly 检索失败时只记日志并返回空列表，写作流程不因检索失败而中断
func (c *Client) QueryQuietly(ctx context.Context, question string) []DocItem {
	docs, err := c.QueryDocuments(ctx, question)
	if err != nil {
		logger.Warnf("知识库查询失败: %v", err)
		return nil
	}
	return docs
}

// BuildRefs 将前 topN 条知识片段拼成供提示词引用的参考片段块
func BuildRefs(docs []DocItem, topN int) string {
	if len(docs) == 0 {
		return ""
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}
	var sb strings.Builder
	for i, d := range docs[:topN] {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("【%d】%s", i+1, text))
	}
	return sb.String()
}
