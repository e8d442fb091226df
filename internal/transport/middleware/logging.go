package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/chatmate/pkg/logger"
)

// sensitiveFields match header and JSON field names case-insensitively.
var sensitiveFields = []string{
	"signature",
	"token",
	"authorization",
	"secret",
	"private",
	"seed",
	"key",
	"cookie",
}

// LoggingMiddleware logs each request and response through the request
// scoped logger, with credentials masked.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lg := logger.From(r.Context())

		logRequest(lg, r)

		ww := &responseWriter{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
		}

		next.ServeHTTP(ww, r)

		logResponse(lg, r, ww, time.Since(start))
	})
}

const maxLoggedBody = 4096

// responseWriter records the status, the size and the head of the body.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.body.Len() < maxLoggedBody {
		rw.body.Write(b)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Request bodies are only read when debug logging is on.
func logRequest(logger *slog.Logger, r *http.Request) {
	if !logger.Enabled(r.Context(), slog.LevelDebug) {
		logger.Info("incoming request", "method", r.Method, "path", r.URL.Path)
		return
	}

	var bodyBytes []byte
	if r.Body != nil {
		bodyBytes, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	logger.Debug("incoming request",
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", filterSensitiveHeaders(r.Header),
		"body", filterSensitiveBody(bodyBytes),
	)
}

func logResponse(logger *slog.Logger, r *http.Request, rw *responseWriter, duration time.Duration) {
	status := rw.statusCode
	if status == 0 {
		status = http.StatusOK
	}

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}

	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"duration_ms", duration.Milliseconds(),
		"response_size", rw.size,
	}
	if logger.Enabled(r.Context(), slog.LevelDebug) {
		attrs = append(attrs, "body", filterSensitiveBody(rw.body.Bytes()))
	}
	logger.Log(r.Context(), level, "response", attrs...)
}

const filtered = "[FILTERED]"

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(name, field) {
			return true
		}
	}
	return false
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// filterSensitiveBody masks credential fields at any depth of a JSON body.
// Bodies that are not JSON are dropped entirely when they mention one.
func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		if isSensitive(string(body)) {
			return filtered
		}
		return string(body)
	}

	masked, err := json.Marshal(redact(doc))
	if err != nil {
		return filtered
	}
	return string(masked)
}

func redact(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for key, value := range node {
			if isSensitive(key) {
				node[key] = filtered
			} else {
				node[key] = redact(value)
			}
		}
		return node
	case []any:
		for i := range node {
			node[i] = redact(node[i])
		}
		return node
	default:
		return v
	}
}
