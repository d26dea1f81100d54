// download.go — сервис скачивания файлов.
package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/primex/secure-transfer/internal/api/errors"
	"github.com/primex/secure-transfer/internal/api/middleware"
	"github.com/primex/secure-transfer/internal/domain/model"
	"github.com/primex/secure-transfer/internal/storage/filestore"
	"github.com/primex/secure-transfer/internal/storage/metastore"
)

// DownloadError — ошибка скачивания с HTTP-кодом.
type DownloadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DownloadService — сервис скачивания файлов.
type DownloadService struct {
	files  *filestore.FileStore
	meta   *metastore.Store
	logger *slog.Logger
}

// NewDownloadService создаёт сервис скачивания файлов.
func NewDownloadService(
	files *filestore.FileStore,
	meta *metastore.Store,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		files:  files,
		meta:   meta,
		logger: logger.With(slog.String("component", "download_service")),
	}
}

// Resolve ищет живую запись по file_id.
//
// Неизвестный идентификатор — 404. Истёкший — 410, при этом файл
// и запись удаляются сразу (ленивая очистка, не дожидаясь sweeper'а).
// Запись, чей файл исчез с диска — 404, запись удаляется.
// Скачивание не мутирует запись: срок хранения только временной,
// не счётный.
func (s *DownloadService) Resolve(fileID string) (*model.FileRecord, *DownloadError) {
	rec := s.meta.Get(fileID)
	if rec == nil {
		return nil, &DownloadError{
			StatusCode: 404,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Файл %s не найден", fileID),
		}
	}

	// Проверка срока хранения на момент обращения
	if rec.IsExpired(time.Now().UTC()) {
		s.expireLazily(rec)
		return nil, &DownloadError{
			StatusCode: 410,
			Code:       apierrors.CodeFileExpired,
			Message:    fmt.Sprintf("Срок хранения файла %s истёк", fileID),
		}
	}

	// Файл исчез с диска (ручная очистка директории хранения) —
	// запись больше не описывает живой файл
	if !s.files.Exists(rec.StoragePath) {
		s.logger.Warn("Файл отсутствует на диске, запись удалена",
			slog.String("file_id", rec.FileID),
			slog.String("storage_path", rec.StoragePath),
		)
		if _, err := s.meta.Remove(rec.FileID); err != nil {
			s.logger.Error("Ошибка удаления осиротевшей записи",
				slog.String("file_id", rec.FileID),
				slog.String("error", err.Error()),
			)
		}
		middleware.FilesTotal.Set(float64(s.meta.Len()))
		return nil, &DownloadError{
			StatusCode: 404,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Файл %s не найден на диске", fileID),
		}
	}

	return rec, nil
}

// Serve отдаёт файл клиенту через http.ServeContent с оригинальным
// именем в Content-Disposition. Поддерживает Range requests (206)
// и If-Modified-Since.
func (s *DownloadService) Serve(w http.ResponseWriter, r *http.Request, fileID string) *DownloadError {
	rec, dlErr := s.Resolve(fileID)
	if dlErr != nil {
		return dlErr
	}

	file, err := s.files.Read(rec.StoragePath)
	if err != nil {
		// Файл был на диске на момент Resolve, но открыть не удалось.
		// Запись не удаляем: отсутствие файла не подтверждено.
		s.logger.Error("Ошибка открытия файла",
			slog.String("file_id", fileID),
			slog.String("storage_path", rec.StoragePath),
			slog.String("error", err.Error()),
		)
		return &DownloadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
		}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		s.logger.Error("Ошибка получения stat файла",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return &DownloadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
		}
	}

	contentType := rec.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.OriginalFilename))

	http.ServeContent(w, r, rec.OriginalFilename, stat.ModTime(), file)

	middleware.OperationsTotal.WithLabelValues("download", "success").Inc()

	s.logger.Debug("Файл скачан",
		slog.String("file_id", fileID),
		slog.String("filename", rec.OriginalFilename),
		slog.Int64("size", rec.Size),
	)

	return nil
}

// expireLazily удаляет истёкший файл и его запись при обращении.
// Best-effort: ошибки логируются, следующий sweep повторит попытку.
func (s *DownloadService) expireLazily(rec *model.FileRecord) {
	if err := s.files.Delete(rec.StoragePath); err != nil {
		s.logger.Error("Ошибка ленивого удаления истёкшего файла",
			slog.String("file_id", rec.FileID),
			slog.String("error", err.Error()),
		)
		return
	}
	if _, err := s.meta.Remove(rec.FileID); err != nil {
		s.logger.Error("Ошибка удаления записи истёкшего файла",
			slog.String("file_id", rec.FileID),
			slog.String("error", err.Error()),
		)
		return
	}

	middleware.OperationsTotal.WithLabelValues("expire_lazy", "success").Inc()
	middleware.FilesTotal.Set(float64(s.meta.Len()))

	s.logger.Info("Истёкший файл удалён при обращении",
		slog.String("file_id", rec.FileID),
		slog.String("filename", rec.OriginalFilename),
	)
}
