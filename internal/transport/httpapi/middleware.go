package httpapi

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// statusRecorder перехватывает код ответа для лога и метрик.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withObservability логирует каждый запрос и учитывает его в метриках.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		if s.metrics != nil {
			s.metrics.Record(r.Method, route, recorder.status, duration)
		}
		s.logger.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      recorder.status,
			"duration_ms": duration.Milliseconds(),
			"client":      clientKey(r),
		}).Info("http request")
	})
}

// withRateLimit отклоняет запросы сверх лимита клиента кодом 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			s.writeJSON(w, http.StatusTooManyRequests, envelope{
				Success: false,
				Message: "Too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRecovery переводит панику обработчика в 500 вместо обрыва соединения.
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithField("panic", rec).Error("handler panicked")
				s.writeJSON(w, http.StatusInternalServerError, envelope{
					Success: false,
					Message: "Internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
