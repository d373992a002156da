package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStyle(t *testing.T) {
	assert.Equal(t, "公文", NormalizeStyle("公文"))
	assert.Equal(t, DefaultStyle, NormalizeStyle(""))
	assert.Equal(t, DefaultStyle, NormalizeStyle("不存在的风格"))
}

func TestSelectModel(t *testing.T) {
	assert.Equal(t, "deepseek-reasoner", SelectModel(true, "deepseek-chat"))
	assert.Equal(t, "deepseek-chat", SelectModel(false, "deepseek-chat"))
	assert.Equal(t, "deepseek-chat", SelectModel(false, ""))
	assert.Equal(t, "qwen-max", SelectModel(false, "qwen-max"))
}

func TestBuildPolishMessages(t *testing.T) {
	msgs := BuildPolishMessages("待润色文本", "公文", "")
	require.Len(t, msgs, 2)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "纯 Markdown 文本")
	assert.Equal(t, "user", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "「公文」")
	assert.Contains(t, msgs[1].Content, "待润色文本")
	assert.NotContains(t, msgs[1].Content, "参考片段")
}

func TestBuildPolishMessagesWithRefs(t *testing.T) {
	msgs := BuildPolishMessages("文本", "学术", "【1】第一条参考")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "参考以下片段：")
	assert.Contains(t, msgs[1].Content, "【1】第一条参考")
}

func TestBuildWriteMessagesStrictWordLimit(t *testing.T) {
	msgs := BuildWriteMessages("写作意图", "文学", "", WriteOptions{
		WordLimit:       500,
		StrictWordLimit: true,
		Requires:        []string{"结构清晰", "引用案例"},
	})
	require.Len(t, msgs, 2)

	user := msgs[1].Content
	assert.Contains(t, user, "严格为 500 字（±0）")
	assert.Contains(t, user, "字数必须严格等于 500")
	assert.Contains(t, user, "结构清晰、引用案例")
	assert.Contains(t, user, "意图：写作意图")
}

func TestBuildWriteMessagesLooseLength(t *testing.T) {
	loose := BuildWriteMessages("意图", "", "", WriteOptions{WordLimit: 300})
	assert.Contains(t, loose[1].Content, "控制在约 300 字（±20%）")
	assert.NotContains(t, loose[1].Content, "字数必须严格等于")

	byLabel := BuildWriteMessages("意图", "", "", WriteOptions{Len: "long"})
	assert.Contains(t, byLabel[1].Content, "较长篇幅")

	defaults := BuildWriteMessages("意图", "", "", WriteOptions{})
	assert.Contains(t, defaults[1].Content, "适中篇幅")
	assert.Contains(t, defaults[1].Content, "结构清晰、简洁明了、无错别字")
}

func TestBuildContinueMessages(t *testing.T) {
	full := BuildContinueMessages("已有正文", "科普", "", false)
	require.Len(t, full, 2)
	assert.Contains(t, full[0].Content, "「科普」")
	assert.Contains(t, full[1].Content, "已写正文")
	assert.Contains(t, full[1].Content, "已有正文")

	outline := BuildContinueMessages("# 大纲", "科普", "【1】参考", true)
	assert.Contains(t, outline[1].Content, "文章大纲")
	assert.Contains(t, outline[1].Content, "# 大纲")
	assert.Contains(t, outline[1].Content, "参考片段")
}

func TestAllowedStylesIsCopy(t *testing.T) {
	styles := AllowedStyles()
	require.NotEmpty(t, styles)
	styles[0] = "改写"
	assert.NotEqual(t, styles[0], AllowedStyles()[0])
	assert.True(t, strings.Contains(strings.Join(AllowedStyles(), ","), DefaultStyle))
}
