package merge

import "strings"

// Style 原文容器的可继承样式，键为 CSS 属性名
type Style map[string]string

// styleKeys 回退容器继承的样式属性，固定顺序保证渲染稳定
var styleKeys = []string{
	"font-family",
	"font-size",
	"font-weight",
	"font-style",
	"line-height",
	"color",
	"text-decoration",
}

// Merge 把生成内容合并进原文结构，返回合并结果和是否走了放弃合并的回退路径。
// 规则按优先级：单容器包裹、多块锚点对齐、样式包裹回退；
// 最后做安全检查，合并结果文本不足生成文本一半时放弃合并原样返回生成内容。
func Merge(original, generated *Fragment, style Style) (*Fragment, bool) {
	if generated == nil {
		generated = &Fragment{}
	}
	origChildren := []*Node{}
	if original != nil {
		origChildren = original.ElementChildren()
	}
	genChildren := generated.ElementChildren()

	var result *Fragment
	switch {
	case len(origChildren) == 1:
		result = mergeSingleWrapper(origChildren[0], generated)
	case len(origChildren) > 1 && len(genChildren) > 0:
		result = mergeAligned(origChildren, genChildren)
	default:
		result = wrapWithStyle(generated, style)
	}

	// 安全检查：结构对齐丢掉太多内容时宁可不合并
	if visibleTextLen(result.Children)*2 < visibleTextLen(generated.Children) {
		return generated.Clone(), true
	}
	return result, false
}

// mergeSingleWrapper 原文只有一个块级容器：克隆容器外壳，保留其直接子锚点，
// 生成内容去重锚点后整体注入
func mergeSingleWrapper(wrapper *Node, generated *Fragment) *Fragment {
	shell, ids, names := cloneShell(wrapper)
	genCopy := generated.Clone()
	genCopy.Children = stripDuplicateAnchors(genCopy.Children, ids, names)
	shell.Children = append(shell.Children, genCopy.Children...)
	return &Fragment{Children: []*Node{shell}}
}

// cloneShell 克隆块的标签和属性并保留直接子锚点，返回外壳和保留的锚点集合
func cloneShell(block *Node) (*Node, map[string]bool, map[string]bool) {
	shell := block.CloneShallow()
	ids := map[string]bool{}
	names := map[string]bool{}
	for _, a := range directAnchorChildren(block) {
		shell.Children = append(shell.Children, a.Clone())
		if id := strings.TrimSpace(a.Attr("id")); id != "" {
			ids[id] = true
		}
		if name := strings.TrimSpace(a.Attr("name")); name != "" {
			names[name] = true
		}
	}
	return shell, ids, names
}

// mergeAligned 多块对齐。生成块先拆成分配单元（带 br 的块从第一个 br 处一分为二），
// 第一趟把携带锚点的单元钉到对应槽位，第二趟把剩余单元按顺序填进空槽
func mergeAligned(origChildren, genChildren []*Node) *Fragment {
	// 锚点键到原文槽位的映射，重复键后者覆盖
	anchorToSlot := map[string]int{}
	for i, block := range origChildren {
		for _, key := range blockAnchorKeys(block) {
			anchorToSlot[key] = i
		}
	}

	units := splitUnits(genChildren)

	mapped := make([]*Node, len(origChildren))
	taken := make([]bool, len(origChildren))
	assigned := 0

	nextFree := func() int {
		for i := range taken {
			if !taken[i] {
				return i
			}
		}
		return -1
	}

	// anchorTarget 按文档序找第一个命中未占用槽位的锚点键。
	// 先看单元源块自身的 id/name，再看内容子树里的锚点元素
	anchorTarget := func(u alignUnit) int {
		for _, key := range u.ownKeys {
			if slot, ok := anchorToSlot[key]; ok && !taken[slot] {
				return slot
			}
		}
		for _, n := range u.content {
			found := -1
			walk(n, func(c *Node) {
				if found >= 0 {
					return
				}
				for _, key := range blockAnchorKeys(c) {
					if slot, ok := anchorToSlot[key]; ok && !taken[slot] {
						found = slot
						return
					}
				}
			})
			if found >= 0 {
				return found
			}
		}
		return -1
	}

	assign := func(slot int, content []*Node) {
		shell, ids, names := cloneShell(origChildren[slot])
		var copies []*Node
		for _, n := range content {
			copies = append(copies, n.Clone())
		}
		shell.Children = append(shell.Children, stripDuplicateAnchors(copies, ids, names)...)
		mapped[slot] = shell
		taken[slot] = true
		assigned++
	}

	// 锚点优先：带锚点的单元先钉住自己的槽位，位置填充不会抢走它们
	pending := make([]bool, len(units))
	for i, u := range units {
		if slot := anchorTarget(u); slot >= 0 {
			assign(slot, u.content)
		} else {
			pending[i] = true
		}
	}
	// 剩余单元按出现顺序填进空槽；槽位耗尽的多余内容被丢弃，由安全检查兜底
	for i, u := range units {
		if !pending[i] {
			continue
		}
		slot := nextFree()
		if slot < 0 {
			break
		}
		assign(slot, u.content)
	}

	// 对齐一个槽位都没占上时原样返回生成内容
	if assigned == 0 {
		return &Fragment{Children: cloneAll(genChildren)}
	}

	// 未分配的槽位保留空外壳，锚点和块数量不丢
	out := &Fragment{}
	for i := range origChildren {
		if mapped[i] != nil {
			out.Children = append(out.Children, mapped[i])
			continue
		}
		shell, _, _ := cloneShell(origChildren[i])
		out.Children = append(out.Children, shell)
	}
	return out
}

// alignUnit 一个待分配的内容单元。ownKeys 是源块自身的 id/name 锚点键，
// 拆分后的内容节点不再带着源块标签，没有它源块的锚点会丢
type alignUnit struct {
	content []*Node
	ownKeys []string
}

// splitUnits 把生成块展开成分配单元，内部出现 br 的块拆成前后两个单元。
// br 拆分时前半单元继承源块自身的锚点键
func splitUnits(genChildren []*Node) []alignUnit {
	var units []alignUnit
	for _, gen := range genChildren {
		keys := anchorKeys(gen)
		if head, tail, ok := splitAtBreak(gen.Children); ok {
			units = append(units,
				alignUnit{content: head, ownKeys: keys},
				alignUnit{content: tail})
			continue
		}
		units = append(units, alignUnit{content: gen.Children, ownKeys: keys})
	}
	return units
}

// splitAtBreak 在第一个直接子 br 处拆分，br 本身丢弃
func splitAtBreak(nodes []*Node) (head, tail []*Node, ok bool) {
	for i, n := range nodes {
		if n.Kind == KindElement && n.Tag == "br" {
			return nodes[:i], nodes[i+1:], true
		}
	}
	return nil, nil, false
}

// wrapWithStyle 无法对齐时用继承样式的 div 包裹生成内容
func wrapWithStyle(generated *Fragment, style Style) *Fragment {
	container := &Node{Kind: KindElement, Tag: "div"}
	if css := buildStyleAttr(style); css != "" {
		container.Attrs = append(container.Attrs, Attr{Key: "style", Val: css})
	}
	container.Children = cloneAll(generated.Children)
	return &Fragment{Children: []*Node{container}}
}

// buildStyleAttr 过滤掉 normal 和 400 这类浏览器默认值
func buildStyleAttr(style Style) string {
	if len(style) == 0 {
		return ""
	}
	var parts []string
	for _, key := range styleKeys {
		val := strings.TrimSpace(style[key])
		if val == "" || val == "normal" || val == "400" {
			continue
		}
		parts = append(parts, key+": "+val)
	}
	return strings.Join(parts, "; ")
}

func cloneAll(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		out = append(out, n.Clone())
	}
	return out
}
