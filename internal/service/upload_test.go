package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/primex/secure-transfer/internal/config"
)

// testConfig возвращает конфигурацию для тестов сервисов.
func testConfig() *config.Config {
	return &config.Config{
		DefaultExpireDays: 7,
		MaxFileSize:       1024,
	}
}

func TestUpload_Success(t *testing.T) {
	_, files, meta := setupSweepTestEnv(t)
	svc := NewUploadService(testConfig(), files, meta, testLogger())

	content := "hello secure transfer"
	result, uploadErr := svc.Upload(UploadParams{
		Reader:           strings.NewReader(content),
		OriginalFilename: "report.pdf",
		ContentType:      "application/pdf",
		Size:             int64(len(content)),
		ExpireDays:       3,
	})
	if uploadErr != nil {
		t.Fatalf("Ошибка загрузки: %v", uploadErr)
	}

	rec := result.Record
	if rec.FileID == "" {
		t.Error("FileID пустой")
	}
	if rec.OriginalFilename != "report.pdf" {
		t.Errorf("OriginalFilename: хотели report.pdf, получили %s", rec.OriginalFilename)
	}
	if rec.Size != int64(len(content)) {
		t.Errorf("Size: хотели %d, получили %d", len(content), rec.Size)
	}

	// Запись в store и файл на диске согласованы
	if meta.Get(rec.FileID) == nil {
		t.Error("Запись не попала в store")
	}
	if !files.Exists(rec.StoragePath) {
		t.Error("Файл не попал на диск")
	}
}

func TestUpload_ExpiresAtArithmetic(t *testing.T) {
	_, files, meta := setupSweepTestEnv(t)
	svc := NewUploadService(testConfig(), files, meta, testLogger())

	result, uploadErr := svc.Upload(UploadParams{
		Reader:           strings.NewReader("data"),
		OriginalFilename: "a.txt",
		Size:             4,
		ExpireDays:       5,
	})
	if uploadErr != nil {
		t.Fatalf("Ошибка загрузки: %v", uploadErr)
	}

	rec := result.Record
	// expires_at = uploaded_at + ровно expire_days суток
	want := rec.UploadedAt.AddDate(0, 0, 5)
	if !rec.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt: хотели %v, получили %v", want, rec.ExpiresAt)
	}
}

func TestUpload_DefaultExpireDays(t *testing.T) {
	_, files, meta := setupSweepTestEnv(t)
	cfg := testConfig()
	cfg.DefaultExpireDays = 14
	svc := NewUploadService(cfg, files, meta, testLogger())

	// ExpireDays == 0 — параметр не передан, берём значение из конфигурации
	result, uploadErr := svc.Upload(UploadParams{
		Reader:           strings.NewReader("data"),
		OriginalFilename: "a.txt",
		Size:             4,
	})
	if uploadErr != nil {
		t.Fatalf("Ошибка загрузки: %v", uploadErr)
	}

	rec := result.Record
	want := rec.UploadedAt.AddDate(0, 0, 14)
	if !rec.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt: хотели %v, получили %v", want, rec.ExpiresAt)
	}
}

func TestUpload_NegativeExpireDays_Rejected(t *testing.T) {
	_, files, meta := setupSweepTestEnv(t)
	svc := NewUploadService(testConfig(), files, meta, testLogger())

	_, uploadErr := svc.Upload(UploadParams{
		Reader:           strings.NewReader("data"),
		OriginalFilename: "a.txt",
		Size:             4,
		ExpireDays:       -1,
	})
	if uploadErr == nil {
		t.Fatal("Ожидалась ошибка валидации")
	}
	if uploadErr.StatusCode != 400 {
		t.Errorf("StatusCode: хотели 400, получили %d", uploadErr.StatusCode)
	}

	// Отклонённая загрузка не оставляет следов
	if meta.Len() != 0 {
		t.Errorf("В store %d записей, ожидалось 0", meta.Len())
	}
}

func TestUpload_TooLarge_Rejected(t *testing.T) {
	_, files, meta := setupSweepTestEnv(t)
	cfg := testConfig()
	cfg.MaxFileSize = 10
	svc := NewUploadService(cfg, files, meta, testLogger())

	_, uploadErr := svc.Upload(UploadParams{
		Reader:           strings.NewReader("this content is longer than ten bytes"),
		OriginalFilename: "big.bin",
		Size:             38,
	})
	if uploadErr == nil {
		t.Fatal("Ожидалась ошибка превышения размера")
	}
	if uploadErr.StatusCode != 413 {
		t.Errorf("StatusCode: хотели 413, получили %d", uploadErr.StatusCode)
	}
}

func TestUpload_MetadataFailure_FileRolledBack(t *testing.T) {
	dir, files, meta := setupSweepTestEnv(t)
	svc := NewUploadService(testConfig(), files, meta, testLogger())

	// Ломаем персистирование: подменяем документ директорией,
	// rename при записи метаданных сломается
	metaPath := filepath.Join(dir, "file_metadata.json")
	if err := os.Remove(metaPath); err != nil {
		t.Fatalf("Ошибка удаления документа: %v", err)
	}
	if err := os.Mkdir(metaPath, 0o750); err != nil {
		t.Fatalf("Ошибка создания директории: %v", err)
	}

	_, uploadErr := svc.Upload(UploadParams{
		Reader:           strings.NewReader("data"),
		OriginalFilename: "a.txt",
		Size:             4,
	})
	if uploadErr == nil {
		t.Fatal("Ожидалась ошибка загрузки")
	}
	if uploadErr.StatusCode != 500 {
		t.Errorf("StatusCode: хотели 500, получили %d", uploadErr.StatusCode)
	}

	// Атомарность: ни записи в store, ни файла на диске
	if meta.Len() != 0 {
		t.Errorf("В store %d записей, ожидалось 0", meta.Len())
	}
	entries, err := os.ReadDir(files.StorageDir())
	if err != nil {
		t.Fatalf("Ошибка чтения директории хранения: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("После сбоя метаданных на диске осталось %d файлов", len(entries))
	}
}

func TestDownloadResolve_UnknownID(t *testing.T) {
	_, files, meta := setupSweepTestEnv(t)
	svc := NewDownloadService(files, meta, testLogger())

	_, dlErr := svc.Resolve("no-such-id")
	if dlErr == nil {
		t.Fatal("Ожидалась ошибка Resolve")
	}
	if dlErr.StatusCode != 404 {
		t.Errorf("StatusCode: хотели 404, получили %d", dlErr.StatusCode)
	}
}

func TestDownloadResolve_Expired_LazyCleanup(t *testing.T) {
	_, files, meta := setupSweepTestEnv(t)
	svc := NewDownloadService(files, meta, testLogger())

	expired := recordWithExpiry("expired-1", time.Now().UTC().Add(-1*time.Hour))
	createStoredFile(t, files, meta, expired)

	_, dlErr := svc.Resolve("expired-1")
	if dlErr == nil {
		t.Fatal("Ожидалась ошибка Resolve")
	}
	if dlErr.StatusCode != 410 {
		t.Errorf("StatusCode: хотели 410, получили %d", dlErr.StatusCode)
	}

	// Ленивая очистка: запись и файл удалены сразу, без участия sweeper'а
	if meta.Get("expired-1") != nil {
		t.Error("Истёкшая запись осталась в store")
	}
	if files.Exists("expired-1.txt") {
		t.Error("Истёкший файл остался на диске")
	}
}

func TestDownloadResolve_MissingFile_RecordPruned(t *testing.T) {
	_, files, meta := setupSweepTestEnv(t)
	svc := NewDownloadService(files, meta, testLogger())

	ghost := recordWithExpiry("ghost-1", time.Now().UTC().Add(48*time.Hour))
	if err := meta.Put(ghost); err != nil {
		t.Fatalf("Ошибка добавления записи: %v", err)
	}

	_, dlErr := svc.Resolve("ghost-1")
	if dlErr == nil {
		t.Fatal("Ожидалась ошибка Resolve")
	}
	if dlErr.StatusCode != 404 {
		t.Errorf("StatusCode: хотели 404, получили %d", dlErr.StatusCode)
	}
	if meta.Get("ghost-1") != nil {
		t.Error("Осиротевшая запись осталась в store")
	}
}

func TestDownloadResolve_Alive_NotMutated(t *testing.T) {
	_, files, meta := setupSweepTestEnv(t)
	svc := NewDownloadService(files, meta, testLogger())

	active := recordWithExpiry("active-1", time.Now().UTC().Add(48*time.Hour))
	createStoredFile(t, files, meta, active)

	// Скачивание не мутирует запись: повторные Resolve идемпотентны
	for i := 0; i < 3; i++ {
		rec, dlErr := svc.Resolve("active-1")
		if dlErr != nil {
			t.Fatalf("Ошибка Resolve #%d: %v", i+1, dlErr)
		}
		if !rec.ExpiresAt.Equal(active.ExpiresAt) {
			t.Errorf("ExpiresAt изменился после Resolve #%d", i+1)
		}
	}

	if meta.Len() != 1 {
		t.Errorf("Len: хотели 1, получили %d", meta.Len())
	}
}
