// Пакет model — доменные модели Secure Transfer.
// FileRecord — единая структура метаданных загруженного файла,
// используется как in-memory представление и как формат записи
// в file_metadata.json.
package model

import (
	"errors"
	"time"
)

// FileRecord — метаданные одного загруженного файла.
// Поле StoragePath не входит в API-ответы, но сохраняется в документе
// метаданных для привязки записи к физическому файлу на диске.
type FileRecord struct {
	// FileID — уникальный идентификатор файла (UUID v4).
	// Публичная ссылка на файл в download/view URL.
	FileID string `json:"file_id"`

	// OriginalFilename — оригинальное имя файла при загрузке.
	// Используется только для Content-Disposition и страницы файла.
	OriginalFilename string `json:"original_filename"`

	// StoragePath — имя файла на диске (относительно ST_STORAGE_DIR).
	// Взаимно однозначно соответствует FileID.
	StoragePath string `json:"storage_path"`

	// ContentType — MIME-тип файла
	ContentType string `json:"content_type"`

	// Size — размер файла в байтах
	Size int64 `json:"size"`

	// UploadedAt — дата и время загрузки (UTC)
	UploadedAt time.Time `json:"uploaded_at"`

	// ExpiresAt — дата истечения срока хранения
	// (uploaded_at + expire_days). Неизменяемое поле.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired проверяет, истёк ли срок хранения файла.
func (r *FileRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Validate проверяет соответствие записи схеме.
// Вызывается при загрузке документа метаданных с диска:
// записи с нарушенной схемой отбрасываются.
func (r *FileRecord) Validate() error {
	if r.FileID == "" {
		return errors.New("пустой file_id")
	}
	if r.StoragePath == "" {
		return errors.New("пустой storage_path")
	}
	if r.UploadedAt.IsZero() {
		return errors.New("не задан uploaded_at")
	}
	if r.ExpiresAt.IsZero() {
		return errors.New("не задан expires_at")
	}
	if r.ExpiresAt.Before(r.UploadedAt) {
		return errors.New("expires_at раньше uploaded_at")
	}
	return nil
}
