package storage

import (
	"errors"
	"testing"
	"time"

	"inkflow-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord(id, title string) *model.Record {
	return &model.Record{
		ID:        id,
		Title:     title,
		Messages:  []model.RecordMessage{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// 两种实现跑同一套用例
func runStorageSuite(t *testing.T, newStore func(t *testing.T) Storage) {
	t.Run("CreateGetDelete", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.CreateRecord(newTestRecord("r1", "第一篇")))

		got, err := store.GetRecord("r1")
		require.NoError(t, err)
		assert.Equal(t, "第一篇", got.Title)

		require.NoError(t, store.DeleteRecord("r1"))
		_, err = store.GetRecord("r1")
		assert.True(t, errors.Is(err, ErrRecordNotFound))
		assert.True(t, errors.Is(store.DeleteRecord("r1"), ErrRecordNotFound))
	})

	t.Run("ListSortedByUpdatedAt", func(t *testing.T) {
		store := newStore(t)

		old := newTestRecord("old", "旧")
		old.UpdatedAt = time.Now().Add(-time.Hour)
		require.NoError(t, store.CreateRecord(old))
		require.NoError(t, store.CreateRecord(newTestRecord("new", "新")))

		records, err := store.ListRecords()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "new", records[0].ID)
	})

	t.Run("Messages", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.CreateRecord(newTestRecord("r1", "")))

		msg := &model.RecordMessage{
			ID:        "m1",
			RecordID:  "r1",
			Role:      model.RoleAssistant,
			Content:   "# 标题",
			Timestamp: time.Now(),
		}
		require.NoError(t, store.AddMessage("r1", msg))

		messages, err := store.GetMessages("r1")
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "# 标题", messages[0].Content)

		assert.True(t, errors.Is(store.AddMessage("nope", msg), ErrRecordNotFound))
	})

	t.Run("RenderLifecycle", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.CreateRecord(newTestRecord("r1", "")))
		require.NoError(t, store.AddMessage("r1", &model.RecordMessage{
			ID: "m1", RecordID: "r1", Role: model.RoleAssistant, Content: "正文",
		}))
		require.NoError(t, store.AddMessage("r1", &model.RecordMessage{
			ID: "m2", RecordID: "r1", Role: "user", Content: "问题",
		}))

		pending, err := store.GetPendingRenders("r1")
		require.NoError(t, err)
		require.Len(t, pending, 1, "只有未渲染的 assistant 消息")
		assert.Equal(t, "m1", pending[0].ID)

		require.NoError(t, store.UpdateMessageRender("r1", "m1", "<p>正文</p>", 5))

		pending, err = store.GetPendingRenders("r1")
		require.NoError(t, err)
		assert.Empty(t, pending)

		messages, err := store.GetMessages("r1")
		require.NoError(t, err)
		assert.Equal(t, "<p>正文</p>", messages[0].HTMLContent)
		assert.True(t, messages[0].IsRendered)

		err = store.UpdateMessageRender("r1", "missing", "<p></p>", 0)
		assert.Error(t, err)
	})

	t.Run("BatchRender", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.CreateRecord(newTestRecord("r1", "")))
		require.NoError(t, store.AddMessage("r1", &model.RecordMessage{
			ID: "m1", RecordID: "r1", Role: model.RoleAssistant, Content: "一",
		}))
		require.NoError(t, store.AddMessage("r1", &model.RecordMessage{
			ID: "m2", RecordID: "r1", Role: model.RoleAssistant, Content: "二",
		}))

		err := store.UpdateMessagesRender("r1", []model.RenderUpdate{
			{MessageID: "m1", HTMLContent: "<p>一</p>", RenderTimeMs: 1},
			{MessageID: "m2", HTMLContent: "<p>二</p>", RenderTimeMs: 2},
		})
		require.NoError(t, err)

		pending, err := store.GetPendingRenders("r1")
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestMemoryStorage(t *testing.T) {
	runStorageSuite(t, func(t *testing.T) Storage {
		store := NewMemoryStorage()
		require.NoError(t, store.Init())
		return store
	})
}

func TestDiskStorage(t *testing.T) {
	runStorageSuite(t, func(t *testing.T) Storage {
		store := NewDiskStorage(t.TempDir(), 10)
		require.NoError(t, store.Init())
		return store
	})
}

// 重新打开数据目录后记录仍在
func TestDiskStoragePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store := NewDiskStorage(dir, 10)
	require.NoError(t, store.Init())
	require.NoError(t, store.CreateRecord(newTestRecord("r1", "持久化")))
	require.NoError(t, store.AddMessage("r1", &model.RecordMessage{
		ID: "m1", RecordID: "r1", Role: "user", Content: "内容",
	}))
	require.NoError(t, store.Close())

	reopened := NewDiskStorage(dir, 10)
	require.NoError(t, reopened.Init())

	got, err := reopened.GetRecord("r1")
	require.NoError(t, err)
	assert.Equal(t, "持久化", got.Title)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "内容", got.Messages[0].Content)
}

// 缓存超限按更新时间淘汰，但盘上数据可再次读出
func TestDiskStorageCacheEviction(t *testing.T) {
	store := NewDiskStorage(t.TempDir(), 2)
	require.NoError(t, store.Init())

	for _, id := range []string{"a", "b", "c"} {
		rec := newTestRecord(id, id)
		require.NoError(t, store.CreateRecord(rec))
		time.Sleep(5 * time.Millisecond)
	}

	assert.LessOrEqual(t, len(store.cache), 2)

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.GetRecord(id)
		require.NoError(t, err)
	}
}

func TestDiskStorageBackup(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStorage(dir, 10)
	require.NoError(t, store.Init())
	require.NoError(t, store.CreateRecord(newTestRecord("r1", "备份")))

	require.NoError(t, store.Backup())
}
