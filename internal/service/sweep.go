// sweep.go — сервис фоновой очистки истёкших файлов.
//
// Sweeper периодически обходит все записи store и удаляет файлы,
// чей срок хранения истёк: сначала байты с диска (best-effort,
// отсутствующий файл не ошибка), затем записи — одним батчем,
// чтобы документ метаданных персистировался один раз за проход.
//
// Запускается как горутина с периодическим тикером (ST_SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/primex/secure-transfer/internal/api/middleware"
	"github.com/primex/secure-transfer/internal/storage/filestore"
	"github.com/primex/secure-transfer/internal/storage/metastore"
)

// Prometheus метрики sweeper'а
var (
	// sweepRunsTotal — количество запусков sweeper'а.
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "st_sweep_runs_total",
		Help: "Общее количество запусков sweeper'а",
	})

	// sweepFilesDeletedTotal — количество удалённых истёкших файлов.
	sweepFilesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "st_sweep_files_deleted_total",
		Help: "Общее количество файлов, удалённых sweeper'ом",
	})

	// sweepErrorsTotal — количество ошибок при обработке отдельных файлов.
	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "st_sweep_errors_total",
		Help: "Общее количество ошибок sweeper'а",
	})

	// sweepDurationSeconds — длительность выполнения прохода.
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "st_sweep_duration_seconds",
		Help:    "Длительность прохода sweeper'а в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
)

// SweepResult — результат одного прохода sweeper'а.
type SweepResult struct {
	// DeletedCount — количество удалённых записей
	DeletedCount int
	// Errors — количество ошибок при обработке файлов
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// Sweeper — сервис фоновой очистки истёкших файлов.
type Sweeper struct {
	files    *filestore.FileStore
	meta     *metastore.Store
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper создаёт sweeper.
func NewSweeper(
	files *filestore.FileStore,
	meta *metastore.Store,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		files:    files,
		meta:     meta,
		interval: interval,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

// Start запускает фоновую горутину sweeper'а с периодическим тикером.
// Вызывается один раз при старте приложения.
func (sw *Sweeper) Start(ctx context.Context) {
	swCtx, cancel := context.WithCancel(ctx)
	sw.cancel = cancel
	sw.done = make(chan struct{})

	go sw.run(swCtx)

	sw.logger.Info("Sweeper запущен",
		slog.String("interval", sw.interval.String()),
	)
}

// Stop останавливает фоновый процесс и дожидается завершения горутины.
// Детерминированная остановка нужна тестам и graceful shutdown.
func (sw *Sweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
		<-sw.done
	}
	sw.logger.Info("Sweeper остановлен")
}

// run — основной цикл фоновой горутины.
func (sw *Sweeper) run(ctx context.Context) {
	defer close(sw.done)

	// Первый проход — сразу после старта
	sw.RunOnce()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.RunOnce()
		}
	}
}

// RunOnce выполняет один проход очистки.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
//
// Порядок обработки:
//  1. Снимок записей store
//  2. Для каждой истёкшей записи — удаление файла с диска.
//     Ошибка удаления логируется, запись остаётся до следующего прохода.
//  3. Записи, чей файл исчез с диска вне сервиса, также собираются.
//  4. Все собранные записи удаляются одним батчем — одно
//     персистирование документа за проход.
func (sw *Sweeper) RunOnce() *SweepResult {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	sw.logger.Debug("Проход sweeper'а начат")

	now := time.Now().UTC()
	var toRemove []string

	for _, rec := range sw.meta.Snapshot() {
		expired := rec.IsExpired(now)
		missing := !sw.files.Exists(rec.StoragePath)

		if !expired && !missing {
			continue
		}

		if expired && !missing {
			if err := sw.files.Delete(rec.StoragePath); err != nil {
				sw.logger.Error("Sweeper: ошибка удаления файла",
					slog.String("file_id", rec.FileID),
					slog.String("storage_path", rec.StoragePath),
					slog.String("error", err.Error()),
				)
				result.Errors++
				continue
			}
		}

		toRemove = append(toRemove, rec.FileID)

		sw.logger.Debug("Sweeper: файл собран на удаление",
			slog.String("file_id", rec.FileID),
			slog.String("filename", rec.OriginalFilename),
			slog.Bool("expired", expired),
			slog.Bool("missing", missing),
		)
	}

	if len(toRemove) > 0 {
		removed, err := sw.meta.RemoveBatch(toRemove)
		if err != nil {
			sw.logger.Error("Sweeper: ошибка персистирования store",
				slog.String("error", err.Error()),
			)
			result.Errors++
		}
		result.DeletedCount = removed
	}

	result.Duration = time.Since(start)

	// Обновляем Prometheus метрики
	sweepRunsTotal.Inc()
	sweepFilesDeletedTotal.Add(float64(result.DeletedCount))
	sweepErrorsTotal.Add(float64(result.Errors))
	sweepDurationSeconds.Observe(result.Duration.Seconds())
	middleware.FilesTotal.Set(float64(sw.meta.Len()))

	sw.logger.Info("Проход sweeper'а завершён",
		slog.Int("deleted", result.DeletedCount),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}
