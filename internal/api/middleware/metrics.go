// metrics.go — Prometheus HTTP метрики для Secure Transfer.
// Регистрирует метрики: st_http_requests_total, st_http_request_duration_seconds.
// Бизнес-метрики (st_files_total, st_operations_total) обновляются
// из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "st_http_requests_total",
			Help: "Общее количество HTTP-запросов к Secure Transfer",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "st_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Secure Transfer в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// FilesTotal — текущее количество живых файлов в хранилище (gauge).
	FilesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "st_files_total",
			Help: "Текущее количество файлов в хранилище",
		},
	)

	// OperationsTotal — общее количество файловых операций.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "st_operations_total",
			Help: "Общее количество файловых операций",
		},
		[]string{"operation", "result"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (идентификатор файла заменяется на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет идентификатор файла в пути на {id}
// для предотвращения взрывного роста кардинальности метрик.
// /download/a1b2c3d4-... → /download/{id}
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/download/"):
		return "/download/{id}"
	case strings.HasPrefix(path, "/file/"):
		return "/file/{id}"
	}
	return path
}
