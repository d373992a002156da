package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"inkflow-backend/internal/model"
	"inkflow-backend/pkg/logger"
)

// DiskStorage 落盘实现：每条记录一个 JSON 文件，records.json 作轻量索引，
// 内存里维护一个按更新时间淘汰的缓存
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Record
	cacheSize int
}

type RecordIndex struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Record),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	dirs := []string{
		d.dataDir,
		filepath.Join(d.dataDir, "records"),
		filepath.Join(d.dataDir, "backup"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageInit, err)
		}
	}

	if err := d.warmCache(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Info("Disk storage initialized successfully")
	return nil
}

// warmCache 按索引顺序预热缓存，索引缺失时先写一份空索引
func (d *DiskStorage) warmCache() error {
	indexPath := filepath.Join(d.dataDir, "records.json")

	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return d.saveIndex([]*RecordIndex{})
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		return err
	}

	var indexes []*RecordIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return err
	}

	for _, index := range indexes {
		if len(d.cache) >= d.cacheSize {
			break
		}
		record, err := d.loadRecordFromFile(index.ID)
		if err != nil {
			logger.Errorf("Failed to load record %s: %v", index.ID, err)
			continue
		}
		d.cache[index.ID] = record
	}

	return nil
}

func (d *DiskStorage) recordPath(recordID string) string {
	return filepath.Join(d.dataDir, "records", recordID+".json")
}

func (d *DiskStorage) loadRecordFromFile(recordID string) (*model.Record, error) {
	data, err := os.ReadFile(d.recordPath(recordID))
	if err != nil {
		return nil, err
	}

	var record model.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// saveRecordToFile 先写临时文件再改名，避免半写状态
func (d *DiskStorage) saveRecordToFile(record *model.Record) error {
	path := d.recordPath(record.ID)
	tempPath := path + ".tmp"

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

func (d *DiskStorage) saveIndex(indexes []*RecordIndex) error {
	indexPath := filepath.Join(d.dataDir, "records.json")
	tempPath := indexPath + ".tmp"

	data, err := json.MarshalIndent(indexes, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, indexPath)
}

// rebuildIndex 扫描 records 目录重建索引
func (d *DiskStorage) rebuildIndex() error {
	recordsDir := filepath.Join(d.dataDir, "records")

	files, err := os.ReadDir(recordsDir)
	if err != nil {
		return err
	}

	var indexes []*RecordIndex
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		recordID := file.Name()[:len(file.Name())-5]
		record, err := d.loadRecordFromFile(recordID)
		if err != nil {
			logger.Errorf("Failed to load record %s for index update: %v", recordID, err)
			continue
		}
		indexes = append(indexes, &RecordIndex{
			ID:        record.ID,
			Title:     record.Title,
			CreatedAt: record.CreatedAt,
			UpdatedAt: record.UpdatedAt,
		})
	}

	return d.saveIndex(indexes)
}

func (d *DiskStorage) CreateRecord(record *model.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.saveRecordToFile(record); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := d.rebuildIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[record.ID] = record
	d.evictCache()

	return nil
}

func (d *DiskStorage) GetRecord(recordID string) (*model.Record, error) {
	d.mu.RLock()
	if record, exists := d.cache[recordID]; exists {
		d.mu.RUnlock()
		return record, nil
	}
	d.mu.RUnlock()

	record, err := d.loadRecordFromFile(recordID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.mu.Lock()
	d.cache[recordID] = record
	d.evictCache()
	d.mu.Unlock()

	return record, nil
}

func (d *DiskStorage) UpdateRecord(record *model.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.recordPath(record.ID)); os.IsNotExist(err) {
		return ErrRecordNotFound
	}

	if err := d.saveRecordToFile(record); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := d.rebuildIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[record.ID] = record
	return nil
}

func (d *DiskStorage) DeleteRecord(recordID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.recordPath(recordID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrRecordNotFound
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	delete(d.cache, recordID)

	return d.rebuildIndex()
}

// ListRecords 只读索引，不加载消息正文
func (d *DiskStorage) ListRecords() ([]*model.Record, error) {
	indexPath := filepath.Join(d.dataDir, "records.json")

	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var indexes []*RecordIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	records := make([]*model.Record, 0, len(indexes))
	for _, index := range indexes {
		records = append(records, &model.Record{
			ID:        index.ID,
			Title:     index.Title,
			CreatedAt: index.CreatedAt,
			UpdatedAt: index.UpdatedAt,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})

	return records, nil
}

// getForWrite 取可写记录，缓存未命中时从盘加载。调用方需持有写锁
func (d *DiskStorage) getForWrite(recordID string) (*model.Record, error) {
	if record, exists := d.cache[recordID]; exists {
		return record, nil
	}
	record, err := d.loadRecordFromFile(recordID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	d.cache[recordID] = record
	return record, nil
}

func (d *DiskStorage) AddMessage(recordID string, message *model.RecordMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, err := d.getForWrite(recordID)
	if err != nil {
		return err
	}

	record.Messages = append(record.Messages, *message)
	record.UpdatedAt = time.Now()

	if err := d.saveRecordToFile(record); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	return d.rebuildIndex()
}

func (d *DiskStorage) GetMessages(recordID string) ([]*model.RecordMessage, error) {
	record, err := d.GetRecord(recordID)
	if err != nil {
		return nil, err
	}

	messages := make([]*model.RecordMessage, len(record.Messages))
	for i := range record.Messages {
		messages[i] = &record.Messages[i]
	}

	return messages, nil
}

// UpdateMessageRender 更新单条消息的渲染结果，消息必须属于目标记录
func (d *DiskStorage) UpdateMessageRender(recordID, messageID, htmlContent string, renderTimeMs int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, err := d.getForWrite(recordID)
	if err != nil {
		return err
	}

	for i := range record.Messages {
		if record.Messages[i].ID != messageID {
			continue
		}
		if record.Messages[i].RecordID != "" && record.Messages[i].RecordID != recordID {
			return fmt.Errorf("message %s does not belong to record %s", messageID, recordID)
		}

		record.Messages[i].HTMLContent = htmlContent
		record.Messages[i].IsRendered = true
		record.Messages[i].RenderTimeMs = renderTimeMs

		if err := d.saveRecordToFile(record); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
		return nil
	}

	return fmt.Errorf("%w: %s in record %s", ErrMessageNotFound, messageID, recordID)
}

// UpdateMessagesRender 批量更新渲染结果
func (d *DiskStorage) UpdateMessagesRender(recordID string, renders []model.RenderUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, err := d.getForWrite(recordID)
	if err != nil {
		return err
	}

	renderMap := make(map[string]model.RenderUpdate, len(renders))
	for _, render := range renders {
		renderMap[render.MessageID] = render
	}

	updated := false
	for i := range record.Messages {
		render, ok := renderMap[record.Messages[i].ID]
		if !ok {
			continue
		}
		if record.Messages[i].RecordID != "" && record.Messages[i].RecordID != recordID {
			logger.Warnf("Message %s does not belong to record %s, skipping", record.Messages[i].ID, recordID)
			continue
		}
		record.Messages[i].HTMLContent = render.HTMLContent
		record.Messages[i].IsRendered = true
		record.Messages[i].RenderTimeMs = render.RenderTimeMs
		updated = true
	}

	if updated {
		if err := d.saveRecordToFile(record); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	return nil
}

// GetPendingRenders 取 assistant 角色且未渲染的消息
func (d *DiskStorage) GetPendingRenders(recordID string) ([]*model.RecordMessage, error) {
	messages, err := d.GetMessages(recordID)
	if err != nil {
		return nil, err
	}

	var pending []*model.RecordMessage
	for _, msg := range messages {
		if msg.Role == model.RoleAssistant && !msg.IsRendered {
			pending = append(pending, msg)
		}
	}

	return pending, nil
}

func (d *DiskStorage) evictCache() {
	if len(d.cache) <= d.cacheSize {
		return
	}

	type cacheEntry struct {
		id        string
		updatedAt time.Time
	}

	var entries []cacheEntry
	for id, record := range d.cache {
		entries = append(entries, cacheEntry{id: id, updatedAt: record.UpdatedAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].updatedAt.Before(entries[j].updatedAt)
	})

	toEvict := len(d.cache) - d.cacheSize
	for i := 0; i < toEvict; i++ {
		delete(d.cache, entries[i].id)
	}
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]*model.Record)
	return nil
}

func (d *DiskStorage) Backup() error {
	backupDir := filepath.Join(d.dataDir, "backup", fmt.Sprintf("backup_%d", time.Now().Unix()))

	if err := os.MkdirAll(filepath.Join(backupDir, "records"), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	srcDir := filepath.Join(d.dataDir, "records")
	files, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	for _, file := range files {
		if err := copyFile(filepath.Join(srcDir, file.Name()), filepath.Join(backupDir, "records", file.Name())); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	indexSrc := filepath.Join(d.dataDir, "records.json")
	if err := copyFile(indexSrc, filepath.Join(backupDir, "records.json")); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("Backup completed: %s", backupDir)
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
