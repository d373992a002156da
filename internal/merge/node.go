package merge

import "strings"

// NodeKind 节点类型
type NodeKind int

const (
	KindElement NodeKind = iota
	KindText
)

// Attr 保序的属性对，渲染结果可复现
type Attr struct {
	Key string
	Val string
}

// Node 与浏览器 DOM 解耦的内容树节点。
// 锚点是携带 id 或 name 的 a 元素，作为重排时的位置书签。
type Node struct {
	Kind     NodeKind
	Tag      string // 小写标签名
	Attrs    []Attr
	Text     string
	Children []*Node
}

// Fragment 一段内容的有序块级子节点集合
type Fragment struct {
	Children []*Node
}

func (n *Node) Attr(key string) string {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Clone 深拷贝
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind: n.Kind,
		Tag:  n.Tag,
		Text: n.Text,
	}
	out.Attrs = append([]Attr(nil), n.Attrs...)
	for _, c := range n.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// CloneShallow 只拷贝标签和属性，不带子节点
func (n *Node) CloneShallow() *Node {
	out := &Node{
		Kind: n.Kind,
		Tag:  n.Tag,
		Text: n.Text,
	}
	out.Attrs = append([]Attr(nil), n.Attrs...)
	return out
}

func (f *Fragment) Clone() *Fragment {
	if f == nil {
		return nil
	}
	out := &Fragment{}
	for _, c := range f.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// ElementChildren 元素子节点（对应 DOM 的 .children）
func (f *Fragment) ElementChildren() []*Node {
	var out []*Node
	for _, c := range f.Children {
		if c.Kind == KindElement {
			out = append(out, c)
		}
	}
	return out
}

// isAnchor 携带 id 或 name 的 a 元素
func isAnchor(n *Node) bool {
	if n == nil || n.Kind != KindElement || n.Tag != "a" {
		return false
	}
	return strings.TrimSpace(n.Attr("id")) != "" || strings.TrimSpace(n.Attr("name")) != ""
}

// anchorKeys 节点自身作为锚点时的键（id:x / name:y），大小写敏感
func anchorKeys(n *Node) []string {
	var keys []string
	if id := strings.TrimSpace(n.Attr("id")); id != "" {
		keys = append(keys, "id:"+id)
	}
	if name := strings.TrimSpace(n.Attr("name")); name != "" {
		keys = append(keys, "name:"+name)
	}
	return keys
}

// blockAnchorKeys 块的锚点键：块自身的 id/name，加上子树里全部锚点 a 元素的键
func blockAnchorKeys(block *Node) []string {
	var keys []string
	if block.Kind == KindElement {
		keys = append(keys, anchorKeys(block)...)
	}
	walk(block, func(n *Node) {
		if n != block && isAnchor(n) {
			keys = append(keys, anchorKeys(n)...)
		}
	})
	return keys
}

// walk 先序遍历
func walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		walk(c, fn)
	}
}

// directAnchorChildren 直接子节点中的锚点元素
func directAnchorChildren(n *Node) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if isAnchor(c) {
			out = append(out, c)
		}
	}
	return out
}

// stripDuplicateAnchors 从节点集合中删除 id/name 命中给定集合的锚点元素，
// 防止合并结果里出现重复锚点
func stripDuplicateAnchors(nodes []*Node, ids, names map[string]bool) []*Node {
	var out []*Node
	for _, n := range nodes {
		if isAnchor(n) {
			id := strings.TrimSpace(n.Attr("id"))
			name := strings.TrimSpace(n.Attr("name"))
			if (id != "" && ids[id]) || (name != "" && names[name]) {
				continue
			}
		}
		n.Children = stripDuplicateAnchors(n.Children, ids, names)
		out = append(out, n)
	}
	return out
}

// VisibleText 拼接子树全部文本并压缩空白，用于合并安全检查
func VisibleText(nodes []*Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		walk(n, func(c *Node) {
			if c.Kind == KindText {
				sb.WriteString(c.Text)
			}
		})
	}
	return strings.Join(strings.Fields(sb.String()), "")
}

func visibleTextLen(nodes []*Node) int {
	return len([]rune(VisibleText(nodes)))
}
