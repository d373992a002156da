package service

import (
	"context"
	"fmt"
	"time"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/knowledge"
	"inkflow-backend/internal/merge"
	"inkflow-backend/internal/model"
	"inkflow-backend/internal/prompt"
	"inkflow-backend/internal/session"
	"inkflow-backend/pkg/logger"

	"github.com/google/uuid"
)

// WriterService 写作助手：润色、续写和内容合并。
// 流式部分复用会话协调器，提示词构造前先做知识库检索
type WriterService struct {
	cfg         *config.Config
	coordinator *session.Coordinator
	kb          *knowledge.Client
}

func NewWriterService(cfg *config.Config, coordinator *session.Coordinator) *WriterService {
	return &WriterService{
		cfg:         cfg,
		coordinator: coordinator,
		kb:          knowledge.NewClient(cfg.Knowledge),
	}
}

// Coordinator 暴露会话协调器，暂停和状态查询接口复用
func (s *WriterService) Coordinator() *session.Coordinator {
	return s.coordinator
}

// ensureSessionID 请求未携带会话 ID 时生成一个
func ensureSessionID(sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return uuid.New().String()
}

// Polish 发起润色流。返回快照通道、错误通道和实际使用的会话 ID
func (s *WriterService) Polish(ctx context.Context, req *model.PolishRequest) (<-chan session.Snapshot, <-chan error, string) {
	sessionID := ensureSessionID(req.SessionID)
	modelID := req.Model
	if modelID == "" {
		modelID = s.cfg.Writer.DefaultModel
	}

	docs := s.kb.QueryQuietly(ctx, req.Text)
	refs := knowledge.BuildRefs(docs, s.cfg.Knowledge.TopN)
	messages := prompt.BuildPolishMessages(req.Text, req.Style, refs)

	snapshots, errChan := s.coordinator.Run(ctx, session.StartParams{
		SessionID: sessionID,
		Messages:  messages,
		Model:     modelID,
		Docs:      docs,
	})
	return snapshots, errChan, sessionID
}

// Write 发起智能写作流。意图文本先过知识库检索，篇幅与字数要求交给提示词构造
func (s *WriterService) Write(ctx context.Context, req *model.WriteRequest) (<-chan session.Snapshot, <-chan error, string) {
	sessionID := ensureSessionID(req.SessionID)
	modelID := prompt.SelectModel(req.Reasoning, req.Model)
	if modelID == "" {
		modelID = s.cfg.Writer.DefaultModel
	}

	docs := s.kb.QueryQuietly(ctx, req.Text)
	refs := knowledge.BuildRefs(docs, s.cfg.Knowledge.TopN)
	messages := prompt.BuildWriteMessages(req.Text, req.Style, refs, prompt.WriteOptions{
		Len:             req.Len,
		Requires:        req.Requires,
		WordLimit:       req.WordLimit,
		StrictWordLimit: req.StrictWordLimit,
	})

	snapshots, errChan := s.coordinator.Run(ctx, session.StartParams{
		SessionID: sessionID,
		Messages:  messages,
		Model:     modelID,
		Docs:      docs,
	})
	return snapshots, errChan, sessionID
}

// Continue 发起续写流。正文超长时提取大纲驱动续写，提取失败回落到全文
func (s *WriterService) Continue(ctx context.Context, req *model.ContinueRequest) (<-chan session.Snapshot, <-chan error, string) {
	sessionID := ensureSessionID(req.SessionID)
	modelID := req.Model
	if modelID == "" {
		modelID = s.cfg.Writer.DefaultModel
	}

	contextMarkdown, isOutline := s.buildContext(req.HTML)

	docs := s.kb.QueryQuietly(ctx, contextMarkdown)
	refs := knowledge.BuildRefs(docs, s.cfg.Knowledge.TopN)
	messages := prompt.BuildContinueMessages(contextMarkdown, req.Style, refs, isOutline)

	snapshots, errChan := s.coordinator.Run(ctx, session.StartParams{
		SessionID: sessionID,
		Messages:  messages,
		Model:     modelID,
		Docs:      docs,
	})
	return snapshots, errChan, sessionID
}

// buildContext 决定续写上下文：全文纯文本超过阈值时改用大纲
func (s *WriterService) buildContext(html string) (string, bool) {
	plain, err := merge.PlainText(html)
	if err != nil {
		logger.Warnf("提取正文文本失败: %v", err)
		return html, false
	}

	if len([]rune(plain)) <= s.cfg.Writer.OutlineMaxLen {
		return plain, false
	}

	outline, err := merge.OutlineMarkdown(html)
	if err != nil || outline == "" {
		logger.Warnf("无法提取大纲，改用全文文本续写")
		return plain, false
	}
	return outline, true
}

// Merge 把生成内容合并进原文结构
func (s *WriterService) Merge(req *model.MergeRequest) (*model.MergeResponse, error) {
	start := time.Now()
	mergedHTML, fallback, err := merge.MergeHTML(req.OriginalHTML, req.GeneratedHTML)
	if err != nil {
		return nil, fmt.Errorf("内容合并失败: %w", err)
	}

	logger.Debugf("内容合并完成, fallback=%v, 耗时 %v", fallback, time.Since(start))
	return &model.MergeResponse{
		MergedHTML: mergedHTML,
		Fallback:   fallback,
	}, nil
}
