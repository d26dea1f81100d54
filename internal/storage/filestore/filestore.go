// Пакет filestore — операции с физическими файлами на диске.
// Обеспечивает streaming-запись, чтение и удаление файлов
// в директории хранения.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore — управление физическими файлами на диске.
type FileStore struct {
	// storageDir — корневая директория хранения файлов (ST_STORAGE_DIR)
	storageDir string
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// StoragePath — имя файла относительно storageDir
	StoragePath string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт новый FileStore. Проверяет и создаёт директорию
// если она не существует.
func New(storageDir string) (*FileStore, error) {
	if err := os.MkdirAll(storageDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранения %s: %w", storageDir, err)
	}

	return &FileStore{storageDir: storageDir}, nil
}

// Save записывает данные из reader на диск под именем,
// производным от fileID. Расширение оригинального имени сохраняется.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// Прерванная загрузка не оставляет частично записанного файла:
// при ошибке temp файл удаляется.
func (fs *FileStore) Save(reader io.Reader, fileID, originalFilename string) (*SaveResult, error) {
	storageName := storageNameFor(fileID, originalFilename)
	fullPath := filepath.Join(fs.storageDir, storageName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StoragePath: storageName,
		FullPath:    fullPath,
		Size:        size,
	}, nil
}

// Read открывает файл для чтения и возвращает *os.File.
// storagePath — имя файла относительно storageDir.
// Вызывающий код обязан закрыть файл.
func (fs *FileStore) Read(storagePath string) (*os.File, error) {
	fullPath := filepath.Join(fs.storageDir, storagePath)

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storagePath, err)
	}

	return f, nil
}

// FullPath возвращает абсолютный путь к файлу на диске.
func (fs *FileStore) FullPath(storagePath string) string {
	return filepath.Join(fs.storageDir, storagePath)
}

// Delete удаляет файл с диска.
// Возвращает nil если файл уже не существует.
func (fs *FileStore) Delete(storagePath string) error {
	fullPath := filepath.Join(fs.storageDir, storagePath)

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", storagePath, err)
	}
	return nil
}

// Exists проверяет существование файла на диске.
func (fs *FileStore) Exists(storagePath string) bool {
	fullPath := filepath.Join(fs.storageDir, storagePath)
	_, err := os.Stat(fullPath)
	return err == nil
}

// StorageDir возвращает путь к директории хранения.
func (fs *FileStore) StorageDir() string {
	return fs.storageDir
}

// storageNameFor формирует имя файла на диске: {file_id}{ext}.
// Расширение берётся из оригинального имени и очищается от
// небезопасных символов.
func storageNameFor(fileID, originalFilename string) string {
	ext := sanitizeExt(filepath.Ext(originalFilename))
	return fileID + ext
}

// sanitizeExt оставляет в расширении только буквы, цифры и точку.
// Слишком длинные или пустые расширения отбрасываются.
func sanitizeExt(ext string) string {
	if ext == "" || len(ext) > 16 {
		return ""
	}

	var result strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' {
			result.WriteRune(r)
		}
	}
	if result.Len() < 2 { // одна точка — не расширение
		return ""
	}
	return result.String()
}
