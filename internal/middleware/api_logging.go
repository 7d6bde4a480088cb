package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// accessRecord is one request's summary, queued for asynchronous logging.
type accessRecord struct {
	method     string
	path       string
	status     int
	bytes      int
	durationMS float64
	remote     string
}

// AccessLogMiddleware writes one structured log line per request. Records
// go through a buffered channel drained by a single goroutine so a slow
// sink never adds latency to the request path; when the buffer is full the
// record is dropped.
type AccessLogMiddleware struct {
	logger  *zap.Logger
	logChan chan accessRecord
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func NewAccessLogMiddleware(logger *zap.Logger) *AccessLogMiddleware {
	m := &AccessLogMiddleware{
		logger:  logger,
		logChan: make(chan accessRecord, 1000),
	}
	go m.drain()
	return m
}

func (m *AccessLogMiddleware) drain() {
	for rec := range m.logChan {
		m.logger.Info("request",
			zap.String("method", rec.method),
			zap.String("path", rec.path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Float64("duration_ms", rec.durationMS),
			zap.String("remote", rec.remote))
	}
}

// Handler returns the middleware handler.
func (m *AccessLogMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapped, r)

		rec := accessRecord{
			method:     r.Method,
			path:       r.URL.Path,
			status:     wrapped.statusCode,
			bytes:      wrapped.bytesWritten,
			durationMS: float64(time.Since(start).Microseconds()) / 1000.0,
			remote:     r.RemoteAddr,
		}
		select {
		case m.logChan <- rec:
		default:
		}
	})
}

func shouldSkipLogging(path string) bool {
	return path == "/health" || path == "/metrics" ||
		strings.HasPrefix(path, "/static/")
}
