package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/expensio/expense-service/pkg/logger"
)

const traceHeader = "X-Trace-ID"

// RequestID trusts an inbound trace id when present, mints one otherwise,
// and threads it through the request logger and the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set(traceHeader, traceID)

		ctx := logger.With(r.Context(), "trace_id", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
