// Пакет config — загрузка и валидация конфигурации Secure Transfer
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Secure Transfer.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории хранения файлов
	StorageDir string
	// Путь к JSON-документу метаданных
	MetadataFile string
	// Срок хранения файла по умолчанию, в днях
	DefaultExpireDays int
	// Интервал запуска sweeper'а
	SweepInterval time.Duration
	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Внешний базовый URL для построения ссылок (опционально).
	// Пустое значение — ссылки относительные.
	ExternalURL string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
// Файл .env в рабочей директории подхватывается, если существует.
func Load() (*Config, error) {
	// .env — для локальной разработки, отсутствие файла не ошибка
	_ = godotenv.Load()

	cfg := &Config{}

	// ST_PORT — порт HTTP-сервера (по умолчанию 8000)
	port, err := getEnvInt("ST_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("ST_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("ST_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// ST_STORAGE_DIR — директория хранения файлов (по умолчанию "storage")
	cfg.StorageDir = getEnvDefault("ST_STORAGE_DIR", "storage")

	// ST_METADATA_FILE — JSON-документ метаданных (по умолчанию "file_metadata.json")
	cfg.MetadataFile = getEnvDefault("ST_METADATA_FILE", "file_metadata.json")

	// ST_DEFAULT_EXPIRE_DAYS — срок хранения по умолчанию (по умолчанию 7 дней)
	expireDays, err := getEnvInt("ST_DEFAULT_EXPIRE_DAYS", 7)
	if err != nil {
		return nil, fmt.Errorf("ST_DEFAULT_EXPIRE_DAYS: %w", err)
	}
	if expireDays < 1 {
		return nil, fmt.Errorf("ST_DEFAULT_EXPIRE_DAYS: значение должно быть положительным, получено %d", expireDays)
	}
	cfg.DefaultExpireDays = expireDays

	// ST_SWEEP_INTERVAL — интервал sweeper'а (по умолчанию 10m)
	cfg.SweepInterval, err = getEnvDuration("ST_SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ST_SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("ST_SWEEP_INTERVAL: значение должно быть положительным")
	}

	// ST_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 1 GB)
	maxFileSize, err := getEnvInt64("ST_MAX_FILE_SIZE", 1073741824)
	if err != nil {
		return nil, fmt.Errorf("ST_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("ST_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// ST_EXTERNAL_URL — внешний базовый URL для ссылок (опционально)
	cfg.ExternalURL = strings.TrimSuffix(getEnvDefault("ST_EXTERNAL_URL", ""), "/")

	// ST_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("ST_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ST_LOG_LEVEL: %w", err)
	}

	// ST_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("ST_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ST_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// ST_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("ST_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ST_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 10m, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
