package service

import (
	"testing"
	"time"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecordService(t *testing.T) *RecordService {
	t.Helper()
	cfg := &config.Config{}
	cfg.Storage.Type = "memory"
	cfg.Session.TTL = time.Hour
	cfg.Session.CleanupInterval = time.Hour
	return NewRecordService(cfg)
}

func TestCreateRecordDefaultTitle(t *testing.T) {
	svc := testRecordService(t)

	record, err := svc.CreateRecord("")
	require.NoError(t, err)
	assert.Contains(t, record.Title, "新对话")

	named, err := svc.CreateRecord("合同审查")
	require.NoError(t, err)
	assert.Equal(t, "合同审查", named.Title)
}

func TestAddMessageRendersAssistantHTML(t *testing.T) {
	svc := testRecordService(t)
	record, err := svc.CreateRecord("测试")
	require.NoError(t, err)

	msg, err := svc.AddMessage(record.ID, model.RoleAssistant, "# 结论\n\n正文")
	require.NoError(t, err)
	assert.True(t, msg.IsRendered)
	assert.Contains(t, msg.HTMLContent, "<h1")

	userMsg, err := svc.AddMessage(record.ID, "user", "问题")
	require.NoError(t, err)
	assert.False(t, userMsg.IsRendered)
	assert.Empty(t, userMsg.HTMLContent)
}

func TestFirstUserMessageBecomesTitle(t *testing.T) {
	svc := testRecordService(t)
	record, err := svc.CreateRecord("")
	require.NoError(t, err)

	_, err = svc.AddMessage(record.ID, "user", "这是一条会变成标题的超长用户消息这是一条会变成标题的超长用户消息")
	require.NoError(t, err)

	got, err := svc.GetRecord(record.ID)
	require.NoError(t, err)
	assert.NotContains(t, got.Title, "新对话")
	assert.LessOrEqual(t, len([]rune(got.Title)), 33)
}

func TestExplicitTitleNotOverwritten(t *testing.T) {
	svc := testRecordService(t)
	record, err := svc.CreateRecord("固定标题")
	require.NoError(t, err)

	_, err = svc.AddMessage(record.ID, "user", "用户消息")
	require.NoError(t, err)

	got, err := svc.GetRecord(record.ID)
	require.NoError(t, err)
	assert.Equal(t, "固定标题", got.Title)
}

func TestRecordNotFoundErrors(t *testing.T) {
	svc := testRecordService(t)

	_, err := svc.GetRecord("missing")
	assert.ErrorContains(t, err, "record not found")

	_, err = svc.AddMessage("missing", "user", "内容")
	assert.ErrorContains(t, err, "record not found")

	assert.ErrorContains(t, svc.DeleteRecord("missing"), "record not found")
}
