// Точка входа Secure Transfer — сервиса обмена файлами по ссылке.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/primex/secure-transfer/internal/api/handlers"
	"github.com/primex/secure-transfer/internal/api/middleware"
	"github.com/primex/secure-transfer/internal/config"
	"github.com/primex/secure-transfer/internal/server"
	"github.com/primex/secure-transfer/internal/service"
	"github.com/primex/secure-transfer/internal/storage/filestore"
	"github.com/primex/secure-transfer/internal/storage/metastore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Secure Transfer запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_dir", cfg.StorageDir),
		slog.String("metadata_file", cfg.MetadataFile),
		slog.String("sweep_interval", cfg.SweepInterval.String()),
	)

	// --- Инициализация компонентов ---

	// 1. Файловое хранилище
	files, err := filestore.New(cfg.StorageDir)
	if err != nil {
		logger.Error("Ошибка инициализации FileStore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Хранилище метаданных
	meta, err := metastore.Open(cfg.MetadataFile, logger)
	if err != nil {
		logger.Error("Ошибка загрузки документа метаданных", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.FilesTotal.Set(float64(meta.Len()))

	// 3. Сервисы
	uploadSvc := service.NewUploadService(cfg, files, meta, logger)
	downloadSvc := service.NewDownloadService(files, meta, logger)

	// 4. Фоновый sweeper истёкших файлов
	ctx := context.Background()
	sweeper := service.NewSweeper(files, meta, cfg.SweepInterval, logger)
	sweeper.Start(ctx)

	// 5. Handlers
	filesHandler := handlers.NewFilesHandler(cfg, uploadSvc, downloadSvc)
	pagesHandler := handlers.NewPagesHandler(downloadSvc, cfg.DefaultExpireDays, logger)
	healthHandler := handlers.NewHealthHandler(cfg.StorageDir, cfg.MetadataFile, meta)

	apiHandler := handlers.NewAPIHandler(filesHandler, pagesHandler, healthHandler)

	// 6. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")
	sweeper.Stop()

	logger.Info("Secure Transfer остановлен")
}
