// Пакет service — бизнес-логика Secure Transfer.
// upload.go — сервис загрузки файлов.
package service

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/primex/secure-transfer/internal/api/errors"
	"github.com/primex/secure-transfer/internal/api/middleware"
	"github.com/primex/secure-transfer/internal/config"
	"github.com/primex/secure-transfer/internal/domain/model"
	"github.com/primex/secure-transfer/internal/storage/filestore"
	"github.com/primex/secure-transfer/internal/storage/metastore"
)

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// OriginalFilename — оригинальное имя файла
	OriginalFilename string
	// ContentType — MIME-тип файла
	ContentType string
	// Size — размер файла (из Content-Length multipart part)
	Size int64
	// ExpireDays — срок хранения в днях. 0 — взять значение по умолчанию.
	ExpireDays int
}

// UploadResult — результат загрузки файла.
type UploadResult struct {
	Record *model.FileRecord
}

// UploadError — ошибка загрузки с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadService — сервис загрузки файлов.
type UploadService struct {
	cfg    *config.Config
	files  *filestore.FileStore
	meta   *metastore.Store
	logger *slog.Logger
}

// NewUploadService создаёт сервис загрузки файлов.
func NewUploadService(
	cfg *config.Config,
	files *filestore.FileStore,
	meta *metastore.Store,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		cfg:    cfg,
		files:  files,
		meta:   meta,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Upload загружает файл в хранилище.
//
// Поток:
//  1. Валидация expire_days (отрицательные и нулевые значения отклоняются)
//  2. Проверка размера файла
//  3. Генерация file_id
//  4. Запись байтов на диск (temp → fsync → rename)
//  5. Вставка записи в store + персистирование документа
//
// Порядок фиксирован: сначала байты, потом метаданные. При ошибке
// персистирования сохранённый файл удаляется — запись без файла
// и файл без записи невозможны.
func (s *UploadService) Upload(params UploadParams) (*UploadResult, *UploadError) {
	// 1. Разрешаем expire_days
	expireDays := params.ExpireDays
	if expireDays == 0 {
		expireDays = s.cfg.DefaultExpireDays
	}
	if expireDays < 1 {
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    fmt.Sprintf("expire_days должен быть положительным, получено %d", params.ExpireDays),
		}
	}

	// 2. Проверяем размер файла
	if params.Size > s.cfg.MaxFileSize {
		return nil, &UploadError{
			StatusCode: 413,
			Code:       apierrors.CodeFileTooLarge,
			Message:    fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", params.Size, s.cfg.MaxFileSize),
		}
	}

	// 3. Генерируем file_id
	fileID := uuid.New().String()

	// 4. Записываем байты на диск
	saved, err := s.files.Save(params.Reader, fileID, params.OriginalFilename)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		s.logger.Error("Ошибка сохранения файла",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка сохранения файла на диск",
		}
	}

	// 5. Формируем запись и персистируем store
	now := time.Now().UTC()
	record := &model.FileRecord{
		FileID:           fileID,
		OriginalFilename: params.OriginalFilename,
		StoragePath:      saved.StoragePath,
		ContentType:      params.ContentType,
		Size:             saved.Size,
		UploadedAt:       now,
		ExpiresAt:        now.AddDate(0, 0, expireDays),
	}

	if err := s.meta.Put(record); err != nil {
		// Откат: файл без записи не должен остаться на диске
		if delErr := s.files.Delete(saved.StoragePath); delErr != nil {
			s.logger.Error("Ошибка отката файла после сбоя метаданных",
				slog.String("file_id", fileID),
				slog.String("error", delErr.Error()),
			)
		}
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		s.logger.Error("Ошибка персистирования метаданных",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка записи метаданных",
		}
	}

	// 6. Обновляем метрики
	middleware.OperationsTotal.WithLabelValues("upload", "success").Inc()
	middleware.FilesTotal.Set(float64(s.meta.Len()))

	s.logger.Info("Файл загружен",
		slog.String("file_id", fileID),
		slog.String("filename", params.OriginalFilename),
		slog.Int64("size", saved.Size),
		slog.Int("expire_days", expireDays),
		slog.Time("expires_at", record.ExpiresAt),
	)

	return &UploadResult{Record: record}, nil
}
