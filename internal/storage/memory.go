package storage

import (
	"fmt"
	"sort"
	"sync"

	"inkflow-backend/internal/model"
)

// MemoryStorage 纯内存实现，测试和轻量部署用
type MemoryStorage struct {
	records map[string]*model.Record
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*model.Record),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Backup() error {
	return nil
}

func (m *MemoryStorage) CreateRecord(record *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.ID] = record
	return nil
}

func (m *MemoryStorage) GetRecord(recordID string) (*model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[recordID]
	if !exists {
		return nil, ErrRecordNotFound
	}

	return record, nil
}

func (m *MemoryStorage) UpdateRecord(record *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[record.ID]; !exists {
		return ErrRecordNotFound
	}

	m.records[record.ID] = record
	return nil
}

func (m *MemoryStorage) DeleteRecord(recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[recordID]; !exists {
		return ErrRecordNotFound
	}

	delete(m.records, recordID)
	return nil
}

func (m *MemoryStorage) ListRecords() ([]*model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*model.Record, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})

	return records, nil
}

func (m *MemoryStorage) AddMessage(recordID string, message *model.RecordMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[recordID]
	if !exists {
		return ErrRecordNotFound
	}

	record.Messages = append(record.Messages, *message)
	return nil
}

func (m *MemoryStorage) GetMessages(recordID string) ([]*model.RecordMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[recordID]
	if !exists {
		return nil, ErrRecordNotFound
	}

	messages := make([]*model.RecordMessage, len(record.Messages))
	for i := range record.Messages {
		messages[i] = &record.Messages[i]
	}

	return messages, nil
}

func (m *MemoryStorage) UpdateMessageRender(recordID, messageID, htmlContent string, renderTimeMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[recordID]
	if !exists {
		return ErrRecordNotFound
	}

	for i := range record.Messages {
		if record.Messages[i].ID == messageID {
			record.Messages[i].HTMLContent = htmlContent
			record.Messages[i].IsRendered = true
			record.Messages[i].RenderTimeMs = renderTimeMs
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
}

func (m *MemoryStorage) UpdateMessagesRender(recordID string, renders []model.RenderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[recordID]
	if !exists {
		return ErrRecordNotFound
	}

	renderMap := make(map[string]model.RenderUpdate, len(renders))
	for _, render := range renders {
		renderMap[render.MessageID] = render
	}

	for i := range record.Messages {
		if render, ok := renderMap[record.Messages[i].ID]; ok {
			record.Messages[i].HTMLContent = render.HTMLContent
			record.Messages[i].IsRendered = true
			record.Messages[i].RenderTimeMs = render.RenderTimeMs
		}
	}

	return nil
}

func (m *MemoryStorage) GetPendingRenders(recordID string) ([]*model.RecordMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[recordID]
	if !exists {
		return nil, ErrRecordNotFound
	}

	var pending []*model.RecordMessage
	for i := range record.Messages {
		msg := &record.Messages[i]
		if msg.Role == model.RoleAssistant && !msg.IsRendered {
			pending = append(pending, msg)
		}
	}

	return pending, nil
}
