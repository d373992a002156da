package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# 标题\n\n- 要点一\n- 要点二")
	require.NoError(t, err)

	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "标题")
	assert.Contains(t, html, "<li>要点一</li>")
}

func TestRenderMarkdownGFMTable(t *testing.T) {
	html, err := RenderMarkdown("| 列 |\n| --- |\n| 值 |")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
}

// 模型输出里的内联 HTML 原样透传，不做转义
func TestRenderMarkdownKeepsInlineHTML(t *testing.T) {
	html, err := RenderMarkdown(`正文带 <a name="mark"></a> 锚点`)
	require.NoError(t, err)
	assert.Contains(t, html, `<a name="mark"></a>`)
	assert.NotContains(t, html, "&lt;a")
}

func TestRenderMarkdownEmpty(t *testing.T) {
	html, err := RenderMarkdown("")
	require.NoError(t, err)
	assert.Empty(t, html)
}
