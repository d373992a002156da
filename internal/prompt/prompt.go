package prompt

import (
	"fmt"
	"strings"

	"inkflow-backend/internal/model"
)

// allowedStyles 允许的写作风格，不在列表内的统一落到默认风格
var allowedStyles = []string{"学术", "公文", "日常", "网络", "科普", "文学", "中性正式"}

// DefaultStyle 默认写作风格
const DefaultStyle = "中性正式"

// lenLabels 篇幅档位对应的中文描述
var lenLabels = map[string]string{
	"short": "简短",
	"mid":   "适中",
	"long":  "较长",
}

// writerSystem 润色与写作共用的 system 提示词
const writerSystem = `你是一个关于法律相关专业的中文写作助手。请严格遵守以下规则：
1. 输出内容必须是「纯 Markdown 文本」，禁止使用任何代码围栏（如 ` + "```" + ` 或 ~~~）。
2. 保持原文语义不变，但要优化语法、逻辑、用词与表达流畅度，可适度调整结构使其更自然。
3. 必须保留 Markdown 格式和排版（如标题、列表、引用等），只润色文字或生成内容，不改变结构。
4. 禁止添加任何额外说明、解释或多余文字，只输出正文内容。
5. 根据用户提供的写作风格参数进行处理，若无参数或参数无效则默认采用「中性正式」风格。
6. 当文档信息不完整，可以结合模型知识补充，要尽可能的详细, 请勿省略。
7. 可参考提供的片段进行处理，但请不要在输出中标注任何来源、链接或序号。`

// NormalizeStyle 校验写作风格，非法取值回落到默认
func NormalizeStyle(style string) string {
	for _, s := range allowedStyles {
		if s == style {
			return style
		}
	}
	return DefaultStyle
}

// AllowedStyles 返回风格列表的拷贝
func AllowedStyles() []string {
	return append([]string(nil), allowedStyles...)
}

// SelectModel 按是否需要推理选择模型
func SelectModel(reasoning bool, fallback string) string {
	if reasoning {
		return "deepseek-reasoner"
	}
	if fallback == "" {
		return "deepseek-chat"
	}
	return fallback
}

// refsSection 参考片段段落，无片段时退化为空行分隔
func refsSection(refs string) string {
	if refs == "" {
		return "\n\n"
	}
	return "\n\n参考片段：\n\n" + refs + "\n\n"
}

// BuildPolishMessages 构造润色消息体
func BuildPolishMessages(text, style, refs string) []model.ChatTurn {
	selected := NormalizeStyle(style)
	lead := ""
	if refs != "" {
		lead = "参考以下片段："
	}
	user := fmt.Sprintf("请以「%s」风格，%s%s对以下内容进行智能润色，并仅输出润色后的正文（不要标注来源或序号）：\n\n%s",
		selected, lead, refsSection(refs), text)
	return []model.ChatTurn{
		{Role: "system", Content: writerSystem},
		{Role: "user", Content: user},
	}
}

// WriteOptions 智能写作的篇幅与要求
type WriteOptions struct {
	Len             string   // short / mid / long
	Requires        []string // 写作要求
	WordLimit       int      // 目标字数，0 表示不限
	StrictWordLimit bool     // 字数是否严格
}

// BuildWriteMessages 构造智能写作消息体，text 为写作意图
func BuildWriteMessages(text, style, refs string, opts WriteOptions) []model.ChatTurn {
	selected := NormalizeStyle(style)
	reqs := "结构清晰、简洁明了、无错别字"
	if len(opts.Requires) > 0 {
		reqs = strings.Join(opts.Requires, "、")
	}
	lenLabel, ok := lenLabels[opts.Len]
	if !ok {
		lenLabel = lenLabels["mid"]
	}
	hasLimit := opts.WordLimit > 0
	lengthPhrase := lenLabel + "篇幅"
	strictRules := ""
	if hasLimit {
		if opts.StrictWordLimit {
			lengthPhrase = fmt.Sprintf("严格为 %d 字（±0）", opts.WordLimit)
			strictRules = fmt.Sprintf("\n- 字数必须严格等于 %d（不多不少）。\n- 字数统计仅计算可见正文文字，不计入 Markdown 标记（如#、*、-、[]()等符号）。\n- 若可能超出，请自行删减；若不足，请补充内容使总字数恰为 %d。\n- 禁止输出任何说明、抱歉或附加话语。",
				opts.WordLimit, opts.WordLimit)
		} else {
			lengthPhrase = fmt.Sprintf("控制在约 %d 字（±20%%）", opts.WordLimit)
		}
	}
	user := fmt.Sprintf("请以「%s」风格，严格按照下列“要求”，围绕“意图”创作一段%s的中文内容。请自动生成合适的标题与小节结构；每段围绕一个核心观点；禁止输出任何解释性话语；输出必须为纯 Markdown 文本（不得使用代码块围栏）。%s\n意图：%s\n要求：%s\n受众：通用读者。%s",
		selected, lengthPhrase, strictRules, text, reqs, refsSection(refs))
	return []model.ChatTurn{
		{Role: "system", Content: writerSystem},
		{Role: "user", Content: user},
	}
}

// BuildContinueMessages 构造续写消息体。
// contextMarkdown 可以是全文文本，也可以是提取出的大纲，isOutline 区分两种场景。
func BuildContinueMessages(contextMarkdown, style, refs string, isOutline bool) []model.ChatTurn {
	selected := NormalizeStyle(style)
	system := "你是一个专业的中文写作助手，负责在不重复已有内容的前提下继续写作。请严格遵守：\n" +
		"1. 仅输出「纯 Markdown 文本」，禁止使用任何代码围栏（如 ``` 或 ~~~）。\n" +
		"2. 严格延续已有内容的结构、语气、术语与格式（标题层级、列表、段落等）。\n" +
		"3. 续写内容要自然衔接，不要复述或改写已有内容。\n" +
		fmt.Sprintf("4. 风格采用「%s」。\n", selected) +
		"5. 可参考提供的片段进行续写，但请不要在输出中标注任何来源、链接或序号。"
	refsText := ""
	if refs != "" {
		refsText = "\n\n参考片段：\n\n" + refs
	}
	var user string
	if isOutline {
		user = "以下是文章大纲（Markdown）。请基于大纲从最后部分自然续写新的内容，注意不要重复大纲中已有的条目，仅输出正文 Markdown（不要标注来源或序号）：\n\n" + contextMarkdown + refsText
	} else {
		user = "以下是文章的已写正文（Markdown）。请从文末自然续写新的内容，保持原有结构与格式，不要重复或改写已有部分，仅输出续写的正文 Markdown（不要标注来源或序号）：\n\n" + contextMarkdown + refsText
	}
	return []model.ChatTurn{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}
