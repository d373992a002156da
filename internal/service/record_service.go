package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"inkflow-backend/internal/config"
	"inkflow-backend/internal/model"
	"inkflow-backend/internal/storage"
	"inkflow-backend/pkg/logger"

	"github.com/google/uuid"
)

// RecordService 聊天记录服务，负责记录的增删查和消息追加，
// 过期记录由后台协程按 TTL 清理
type RecordService struct {
	storage storage.Storage
	config  *config.SessionConfig
}

func NewRecordService(cfg *config.Config) *RecordService {
	var store storage.Storage

	if cfg.Storage.Type == "disk" {
		store = storage.NewDiskStorage(cfg.Storage.DataDir, cfg.Storage.CacheSize)
	} else {
		store = storage.NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize storage: %v", err)
		store = storage.NewMemoryStorage()
		store.Init()
	}

	rs := &RecordService{
		storage: store,
		config:  &cfg.Session,
	}

	go rs.cleanupOldRecords()

	return rs
}

func (s *RecordService) CreateRecord(title string) (*model.Record, error) {
	recordID := fmt.Sprintf("%d", time.Now().UnixNano())

	if title == "" {
		title = "新对话 " + time.Now().Format("2006-01-02 15:04")
	}

	record := &model.Record{
		ID:        recordID,
		Title:     title,
		Messages:  make([]model.RecordMessage, 0),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.storage.CreateRecord(record); err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	return record, nil
}

func (s *RecordService) GetRecord(recordID string) (*model.Record, error) {
	record, err := s.storage.GetRecord(recordID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, fmt.Errorf("record not found: %s", recordID)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return record, nil
}

func (s *RecordService) GetRecordMessages(recordID string) ([]model.RecordMessage, error) {
	messages, err := s.storage.GetMessages(recordID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, fmt.Errorf("record not found: %s", recordID)
		}
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	result := make([]model.RecordMessage, len(messages))
	for i, msg := range messages {
		result[i] = *msg
	}

	return result, nil
}

// AddMessage 追加消息。assistant 消息在落库时顺带渲染 HTML，
// 第一条 user 消息会顶替默认标题
func (s *RecordService) AddMessage(recordID, role, content string) (*model.RecordMessage, error) {
	record, err := s.storage.GetRecord(recordID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, fmt.Errorf("record not found: %s", recordID)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	message := &model.RecordMessage{
		ID:        uuid.New().String(),
		RecordID:  recordID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	if role == model.RoleAssistant {
		start := time.Now()
		if htmlContent, err := RenderMarkdown(content); err != nil {
			logger.Warnf("渲染消息 HTML 失败: %v", err)
		} else {
			message.HTMLContent = htmlContent
			message.IsRendered = true
			message.RenderTimeMs = time.Since(start).Milliseconds()
		}
	}

	if err := s.storage.AddMessage(recordID, message); err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	// 第一条用户消息作为标题，安全截断避免过长
	messages, _ := s.storage.GetMessages(recordID)
	if role == "user" && len(messages) == 1 && strings.HasPrefix(record.Title, "新对话") {
		record.Title = truncateRunes(content, 30)
		record.UpdatedAt = time.Now()
		s.storage.UpdateRecord(record)
	}

	return message, nil
}

func (s *RecordService) UpdateRecordTitle(recordID, title string) error {
	record, err := s.storage.GetRecord(recordID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return fmt.Errorf("record not found: %s", recordID)
		}
		return fmt.Errorf("failed to get record: %w", err)
	}

	record.Title = title
	record.UpdatedAt = time.Now()

	if err := s.storage.UpdateRecord(record); err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	return nil
}

func (s *RecordService) GetAllRecords() ([]*model.Record, error) {
	records, err := s.storage.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return records, nil
}

func (s *RecordService) DeleteRecord(recordID string) error {
	if err := s.storage.DeleteRecord(recordID); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return fmt.Errorf("record not found: %s", recordID)
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}

func (s *RecordService) UpdateMessageRender(recordID, messageID, htmlContent string, renderTimeMs int64) error {
	return s.storage.UpdateMessageRender(recordID, messageID, htmlContent, renderTimeMs)
}

func (s *RecordService) UpdateMessagesRender(recordID string, renders []model.RenderUpdate) error {
	return s.storage.UpdateMessagesRender(recordID, renders)
}

func (s *RecordService) GetPendingRenders(recordID string) ([]*model.RecordMessage, error) {
	messages, err := s.storage.GetPendingRenders(recordID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, fmt.Errorf("record not found: %s", recordID)
		}
		return nil, fmt.Errorf("failed to get pending renders: %w", err)
	}

	return messages, nil
}

// GetStorage 返回存储实例，用于其他服务共享
func (s *RecordService) GetStorage() storage.Storage {
	return s.storage
}

func (s *RecordService) cleanupOldRecords() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		records, err := s.storage.ListRecords()
		if err != nil {
			logger.Errorf("Failed to list records for cleanup: %v", err)
			continue
		}

		cutoff := time.Now().Add(-s.config.TTL)
		for _, record := range records {
			if record.UpdatedAt.Before(cutoff) {
				if err := s.storage.DeleteRecord(record.ID); err != nil {
					logger.Errorf("Failed to delete expired record %s: %v", record.ID, err)
				} else {
					logger.Infof("Cleaned up expired record: %s", record.ID)
				}
			}
		}
	}
}

func truncateRunes(str string, maxLen int) string {
	runes := []rune(str)
	if len(runes) <= maxLen {
		return str
	}
	return string(runes[:maxLen]) + "..."
}
