// metrics.go — Prometheus-метрики HTTP API сервиса напоминаний.
// Лейбл path — шаблон маршрута chi, поэтому UUID записей не раздувают кардинальность.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rm_http_requests_total",
			Help: "HTTP-запросы к API напоминаний",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rm_http_request_duration_seconds",
			Help: "Длительность HTTP-запросов в секундах",
			// Ручной прогон синхронный и может идти минутами
			Buckets: []float64{.005, .025, .1, .5, 1, 5, 15, 60, 180, 600},
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware считает запросы и их длительность.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := recorderFrom(w)

			next.ServeHTTP(rec, r)

			path := routePattern(r)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath — запасной лейбл, когда шаблон маршрута неизвестен.
// /api/v1/dispatch-records/a1b2c3d4-... → /api/v1/dispatch-records/{id}
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/dispatch-records",
		"/api/v1/scheduler/status",
		"/api/v1/reminders/run",
		"/api/v1/notifier/test":
		return path
	}

	const recordsPrefix = "/api/v1/dispatch-records/"
	if strings.HasPrefix(path, recordsPrefix) && len(path) > len(recordsPrefix) {
		return recordsPrefix + "{id}"
	}
	return "other"
}
