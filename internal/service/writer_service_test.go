package service

import (
	"strings"
	"testing"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWriterService(outlineMaxLen int) *WriterService {
	cfg := &config.Config{}
	cfg.Writer.DefaultModel = "deepseek-chat"
	cfg.Writer.OutlineMaxLen = outlineMaxLen
	cfg.Knowledge.TopN = 8
	return NewWriterService(cfg, nil)
}

func TestBuildContextShortDocumentUsesFullText(t *testing.T) {
	svc := testWriterService(6000)

	ctx, isOutline := svc.buildContext("<h1>标题</h1><p>第一段</p>")
	assert.False(t, isOutline)
	assert.Contains(t, ctx, "标题")
	assert.Contains(t, ctx, "第一段")
}

func TestBuildContextLongDocumentUsesOutline(t *testing.T) {
	svc := testWriterService(50)

	var sb strings.Builder
	sb.WriteString("<h1>总标题</h1>")
	for i := 0; i < 20; i++ {
		sb.WriteString("<p>这一段有不少文字用来把全文长度顶过阈值。补充的细节内容。</p>")
	}

	ctx, isOutline := svc.buildContext(sb.String())
	assert.True(t, isOutline)
	assert.Contains(t, ctx, "# 总标题")
	assert.NotContains(t, ctx, "补充的细节内容", "大纲只保留段落首句")
}

func TestMergeEndToEnd(t *testing.T) {
	svc := testWriterService(6000)

	resp, err := svc.Merge(&model.MergeRequest{
		OriginalHTML:  `<p id="x">A</p><p>B</p>`,
		GeneratedHTML: `<p>A2</p><p id="x">B2</p>`,
	})
	require.NoError(t, err)
	assert.False(t, resp.Fallback)
	assert.Equal(t, 1, strings.Count(resp.MergedHTML, `id="x"`))
	assert.Contains(t, resp.MergedHTML, "A2")
	assert.Contains(t, resp.MergedHTML, "B2")
}
