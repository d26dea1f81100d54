// Пакет metastore — персистентное хранилище метаданных файлов.
//
// Все записи хранятся в одном JSON-документе (file_metadata.json):
// map[file_id]FileRecord. Документ загружается в память при старте
// и перезаписывается целиком при каждой мутации. Запись на диск
// атомарна: temp файл → fsync → rename.
//
// Store разделяется между HTTP-обработчиками и sweeper'ом, все операции
// сериализуются через sync.RWMutex. Store — единственный источник истины
// о том, какие файлы «живы».
package metastore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/primex/secure-transfer/internal/domain/model"
)

// Store — потокобезопасное хранилище метаданных файлов.
type Store struct {
	mu      sync.RWMutex
	path    string
	records map[string]*model.FileRecord // file_id → record
	logger  *slog.Logger
}

// Open загружает документ метаданных с диска и возвращает Store.
// Если документ не существует, создаётся пустой.
// Записи с нарушенной схемой отбрасываются с предупреждением в лог.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]*model.FileRecord),
		logger:  logger.With(slog.String("component", "metastore")),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("ошибка чтения документа метаданных %s: %w", path, err)
		}
		// Документа нет — создаём пустой
		if err := s.persist(); err != nil {
			return nil, fmt.Errorf("ошибка создания документа метаданных %s: %w", path, err)
		}
		s.logger.Info("Создан пустой документ метаданных", slog.String("path", path))
		return s, nil
	}

	var raw map[string]*model.FileRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ошибка десериализации документа метаданных %s: %w", path, err)
	}

	dropped := 0
	for id, rec := range raw {
		if rec == nil {
			dropped++
			continue
		}
		if rec.FileID == "" {
			rec.FileID = id
		}
		if err := rec.Validate(); err != nil {
			s.logger.Warn("Запись метаданных не соответствует схеме, отброшена",
				slog.String("file_id", id),
				slog.String("error", err.Error()),
			)
			dropped++
			continue
		}
		s.records[rec.FileID] = rec
	}

	s.logger.Info("Документ метаданных загружен",
		slog.String("path", path),
		slog.Int("records", len(s.records)),
		slog.Int("dropped", dropped),
	)

	return s, nil
}

// Get возвращает запись по file_id.
// Возвращает nil, если запись не найдена.
func (s *Store) Get(fileID string) *model.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[fileID]
	if !ok {
		return nil
	}

	// Возвращаем копию для потокобезопасности
	copied := *rec
	return &copied
}

// Put добавляет запись и персистирует документ.
// При ошибке персистирования запись откатывается из памяти:
// store и диск остаются согласованными.
func (s *Store) Put(rec *model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *rec
	s.records[rec.FileID] = &copied

	if err := s.persist(); err != nil {
		delete(s.records, rec.FileID)
		return fmt.Errorf("ошибка персистирования метаданных: %w", err)
	}
	return nil
}

// Remove удаляет запись по file_id и персистирует документ.
// Возвращает true, если запись была найдена и удалена.
// При ошибке персистирования запись восстанавливается в памяти.
func (s *Store) Remove(fileID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[fileID]
	if !ok {
		return false, nil
	}
	delete(s.records, fileID)

	if err := s.persist(); err != nil {
		s.records[fileID] = rec
		return false, fmt.Errorf("ошибка персистирования метаданных: %w", err)
	}
	return true, nil
}

// RemoveBatch удаляет несколько записей за одно персистирование.
// Используется sweeper'ом: один проход — одна запись документа на диск.
// Возвращает количество фактически удалённых записей.
func (s *Store) RemoveBatch(fileIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]*model.FileRecord)
	for _, id := range fileIDs {
		if rec, ok := s.records[id]; ok {
			removed[id] = rec
			delete(s.records, id)
		}
	}

	if len(removed) == 0 {
		return 0, nil
	}

	if err := s.persist(); err != nil {
		for id, rec := range removed {
			s.records[id] = rec
		}
		return 0, fmt.Errorf("ошибка персистирования метаданных: %w", err)
	}
	return len(removed), nil
}

// Snapshot возвращает копии всех записей.
// Используется sweeper'ом для обхода без удержания блокировки.
func (s *Store) Snapshot() []*model.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.FileRecord, 0, len(s.records))
	for _, rec := range s.records {
		copied := *rec
		result = append(result, &copied)
	}
	return result
}

// Len возвращает количество записей в store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Path возвращает путь к документу метаданных.
func (s *Store) Path() string {
	return s.path
}

// persist атомарно записывает документ метаданных на диск.
// Паттерн: JSON → temp файл → fsync → atomic rename.
// Вызывающий код обязан держать write lock.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	// Создаём директорию если не существует
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	tmpPath := s.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}
