package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
)

// sensitiveMarkers flag request fields and headers that must never reach
// the log. Matched as substrings of the lowercased name.
var sensitiveMarkers = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"api_key",
	"credential",
	"session",
	"auth",
}

const redacted = "[REDACTED]"

// LoggingMiddleware logs one line per request and one per response.
// Credentials in headers or JSON bodies are redacted before logging.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())

			logger.Info("request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", redactHeaders(r.Header),
				"body", redactBody(r),
			)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			level := slog.LevelInfo
			switch {
			case sw.status() >= 500:
				level = slog.LevelError
			case sw.status() >= 400:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "response",
				"request_id", reqID,
				"status", sw.status(),
				"bytes", sw.written,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// statusWriter records the status code and body size; the body itself is
// never buffered.
type statusWriter struct {
	http.ResponseWriter
	code    int
	written int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *statusWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = redacted
		} else {
			out[name] = strings.Join(values, ", ")
		}
	}
	return out
}

// redactBody reads and restores the request body, returning a loggable
// form with sensitive JSON fields replaced.
func redactBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) == 0 {
		return ""
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Non-JSON bodies (multipart uploads) are summarized, not dumped.
		return "[non-json body]"
	}

	clean, err := json.Marshal(redactValue(decoded))
	if err != nil {
		return redacted
	}
	return string(clean)
}

func redactValue(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = redacted
			} else {
				out[key] = redactValue(value)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}
