// health.go — обработчики health endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/primex/secure-transfer/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// StoreSizer — интерфейс для получения количества записей store.
type StoreSizer interface {
	Len() int
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// storageDir — путь к директории хранения (для проверки FS)
	storageDir string
	// metadataFile — путь к документу метаданных
	metadataFile string
	// meta — ссылка на store для количества записей
	meta StoreSizer
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(storageDir, metadataFile string, meta StoreSizer) *HealthHandler {
	return &HealthHandler{
		version:      config.Version,
		storageDir:   storageDir,
		metadataFile: metadataFile,
		meta:         meta,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "secure-transfer",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: директория хранения и директория документа метаданных
// доступны на запись.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	storageCheck := checkWritable(h.storageDir)
	if storageCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	metadataCheck := checkWritable(filepath.Dir(h.metadataFile))
	if metadataCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "secure-transfer",
		"checks": map[string]any{
			"storage":  storageCheck,
			"metadata": metadataCheck,
		},
	}

	if h.meta != nil {
		resp["records"] = h.meta.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// checkWritable проверяет доступность директории на запись.
func checkWritable(dir string) map[string]any {
	testFile := filepath.Join(dir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Директория недоступна для записи: " + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{
		"status": "ok",
	}
}
