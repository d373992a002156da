package merge

import "strings"

// headingLevels 标题标签到 Markdown 井号数的映射
var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// OutlineMarkdown 把正文 HTML 压缩成 Markdown 大纲：
// 标题按层级转井号，列表项转短横，段落只取首句，供续写提示词控制长度
func OutlineMarkdown(src string) (string, error) {
	frag, err := ParseFragment(src)
	if err != nil {
		return "", err
	}
	var lines []string
	var collect func(nodes []*Node)
	collect = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Kind != KindElement {
				continue
			}
			if level, ok := headingLevels[n.Tag]; ok {
				if text := nodeText(n); text != "" {
					lines = append(lines, strings.Repeat("#", level)+" "+text)
				}
				continue
			}
			switch n.Tag {
			case "li":
				if text := nodeText(n); text != "" {
					lines = append(lines, "- "+text)
				}
			case "p":
				if text := firstSentence(nodeText(n)); text != "" {
					lines = append(lines, "- "+text)
				}
			default:
				collect(n.Children)
			}
		}
	}
	collect(frag.Children)
	return strings.Join(lines, "\n"), nil
}

// PlainText 提取正文纯文本，块之间用空行分隔
func PlainText(src string) (string, error) {
	frag, err := ParseFragment(src)
	if err != nil {
		return "", err
	}
	var blocks []string
	for _, n := range frag.Children {
		if text := nodeText(n); text != "" {
			blocks = append(blocks, text)
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

func nodeText(n *Node) string {
	var sb strings.Builder
	walk(n, func(c *Node) {
		if c.Kind == KindText {
			sb.WriteString(c.Text)
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

// firstSentence 截到第一个句末标点，没有标点时截前 60 个字符
func firstSentence(text string) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '。', '！', '？', '!', '?':
			return string(runes[:i+1])
		case '.':
			// 英文句号后跟空格或结尾才算句末，避免切断小数
			if i+1 == len(runes) || runes[i+1] == ' ' {
				return string(runes[:i+1])
			}
		}
	}
	if len(runes) > 60 {
		return string(runes[:60]) + "…"
	}
	return text
}
