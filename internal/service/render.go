package service

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown 写作类接口逐帧渲染和记录落库共用的转换器。
// goldmark 实例并发安全，进程内共享一份
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		// 模型输出里的内联 HTML 原样透传，编辑器侧直接插入
		html.WithUnsafe(),
	),
)

// RenderMarkdown 把 Markdown 转成 HTML 片段
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("Markdown 渲染失败: %w", err)
	}
	return buf.String(), nil
}
