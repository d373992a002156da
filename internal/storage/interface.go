package storage

import (
	"inkflow-backend/internal/model"
)

type Storage interface {
	// 记录管理
	CreateRecord(record *model.Record) error
	GetRecord(recordID string) (*model.Record, error)
	UpdateRecord(record *model.Record) error
	DeleteRecord(recordID string) error
	ListRecords() ([]*model.Record, error)

	// 消息管理（扩展支持HTML）
	AddMessage(recordID string, message *model.RecordMessage) error
	GetMessages(recordID string) ([]*model.RecordMessage, error)
	UpdateMessageRender(recordID, messageID, htmlContent string, renderTimeMs int64) error
	UpdateMessagesRender(recordID string, renders []model.RenderUpdate) error
	GetPendingRenders(recordID string) ([]*model.RecordMessage, error)

	// 存储管理
	Init() error
	Close() error
	Backup() error
}
