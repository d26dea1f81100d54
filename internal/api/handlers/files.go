// files.go — HTTP handlers файловых операций Secure Transfer:
// загрузка и скачивание.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/primex/secure-transfer/internal/api/errors"
	"github.com/primex/secure-transfer/internal/config"
	"github.com/primex/secure-transfer/internal/service"
)

// UploadResponse — тело ответа успешной загрузки.
type UploadResponse struct {
	FileID      string    `json:"file_id"`
	DownloadURL string    `json:"download_url"`
	ViewURL     string    `json:"view_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	cfg         *config.Config
	uploadSvc   *service.UploadService
	downloadSvc *service.DownloadService
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(
	cfg *config.Config,
	uploadSvc *service.UploadService,
	downloadSvc *service.DownloadService,
) *FilesHandler {
	return &FilesHandler{
		cfg:         cfg,
		uploadSvc:   uploadSvc,
		downloadSvc: downloadSvc,
	}
}

// UploadFile обрабатывает POST /upload.
// Multipart form: file (обязательно), expire_days (опционально,
// целое положительное, по умолчанию из конфигурации).
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	// Парсим multipart form (буфер в памяти, остальное во временных файлах)
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		errors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	// Извлекаем файл
	file, header, err := r.FormFile("file")
	if err != nil {
		errors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	// Определяем Content-Type
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// expire_days принимается и как form-, и как query-параметр.
	// Отсутствие — значение по умолчанию; нечисловое значение — 400.
	expireDays := 0
	if raw := r.FormValue("expire_days"); raw != "" {
		expireDays, err = strconv.Atoi(raw)
		if err != nil {
			errors.ValidationError(w, fmt.Sprintf("expire_days должен быть целым числом, получено %q", raw))
			return
		}
		if expireDays < 1 {
			errors.ValidationError(w, fmt.Sprintf("expire_days должен быть положительным, получено %d", expireDays))
			return
		}
	}

	// Вызываем сервис загрузки
	result, uploadErr := h.uploadSvc.Upload(service.UploadParams{
		Reader:           file,
		OriginalFilename: header.Filename,
		ContentType:      contentType,
		Size:             header.Size,
		ExpireDays:       expireDays,
	})

	if uploadErr != nil {
		errors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
		return
	}

	resp := UploadResponse{
		FileID:      result.Record.FileID,
		DownloadURL: h.cfg.ExternalURL + "/download/" + result.Record.FileID,
		ViewURL:     h.cfg.ExternalURL + "/file/" + result.Record.FileID,
		ExpiresAt:   result.Record.ExpiresAt,
	}

	writeJSON(w, http.StatusCreated, resp)
}

// DownloadFile обрабатывает GET /download/{file_id}.
// Отдаёт файл с оригинальным именем; 404 для неизвестного
// идентификатора, 410 для истёкшего.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request, fileID string) {
	downloadErr := h.downloadSvc.Serve(w, r, fileID)
	if downloadErr != nil {
		errors.WriteError(w, downloadErr.StatusCode, downloadErr.Code, downloadErr.Message)
	}
}

// writeJSON вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
