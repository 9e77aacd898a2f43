package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// statusRecorder 捕获写出的状态码，供日志与指标使用。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogger 为每个请求生成 request_id，注入请求级 logger，
// 并在完成时记录一条访问日志和 Prometheus 指标。
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.New().String()

			reqLog := logger.With().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			ctx := reqLog.WithContext(r.Context())

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(rec, r.WithContext(ctx))

			elapsed := time.Since(start)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			requestsTotal.WithLabelValues(route, httpStatusLabel(rec.status)).Inc()
			requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			reqLog.Info().
				Int("status", rec.status).
				Dur("elapsed", elapsed).
				Msg("request")
		})
	}
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
