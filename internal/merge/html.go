package merge

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment 把 HTML 片段解析成内容树，解析上下文为 div
func ParseFragment(src string) (*Fragment, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 片段失败: %w", err)
	}
	frag := &Fragment{}
	for _, n := range nodes {
		if converted := fromHTMLNode(n); converted != nil {
			frag.Children = append(frag.Children, converted)
		}
	}
	return frag, nil
}

func fromHTMLNode(n *html.Node) *Node {
	switch n.Type {
	case html.TextNode:
		return &Node{Kind: KindText, Text: n.Data}
	case html.ElementNode:
		out := &Node{Kind: KindElement, Tag: strings.ToLower(n.Data)}
		for _, a := range n.Attr {
			out.Attrs = append(out.Attrs, Attr{Key: a.Key, Val: a.Val})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if converted := fromHTMLNode(c); converted != nil {
				out.Children = append(out.Children, converted)
			}
		}
		return out
	default:
		// 注释等节点不参与合并
		return nil
	}
}

// Render 把内容树序列化回 HTML 片段
func Render(frag *Fragment) (string, error) {
	var sb strings.Builder
	for _, n := range frag.Children {
		if err := html.Render(&sb, toHTMLNode(n)); err != nil {
			return "", fmt.Errorf("序列化 HTML 失败: %w", err)
		}
	}
	return sb.String(), nil
}

func toHTMLNode(n *Node) *html.Node {
	if n.Kind == KindText {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	out := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	for _, a := range n.Attrs {
		out.Attr = append(out.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	for _, c := range n.Children {
		out.AppendChild(toHTMLNode(c))
	}
	return out
}

// StyleFromFragment 从原文第一个元素子节点的内联样式提取可继承样式
func StyleFromFragment(frag *Fragment) Style {
	for _, c := range frag.ElementChildren() {
		if css := c.Attr("style"); css != "" {
			return parseStyleAttr(css)
		}
		return nil
	}
	return nil
}

func parseStyleAttr(css string) Style {
	style := Style{}
	for _, decl := range strings.Split(css, ";") {
		kv := strings.SplitN(decl, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])
		if key == "" || val == "" {
			continue
		}
		style[key] = val
	}
	if len(style) == 0 {
		return nil
	}
	return style
}

// MergeHTML 字符串层面的合并入口：解析、合并、序列化一步到位
func MergeHTML(originalHTML, generatedHTML string) (string, bool, error) {
	orig, err := ParseFragment(originalHTML)
	if err != nil {
		return "", false, err
	}
	gen, err := ParseFragment(generatedHTML)
	if err != nil {
		return "", false, err
	}
	merged, fallback := Merge(orig, gen, StyleFromFragment(orig))
	out, err := Render(merged)
	if err != nil {
		return "", false, err
	}
	return out, fallback, nil
}
