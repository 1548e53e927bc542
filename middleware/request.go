package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	authgate "github.com/paygate-labs/authgate"
)

// CorrelationHeader carries the request correlation ID on both directions.
const CorrelationHeader = "X-Correlation-Id"

// Correlation tags every request with a correlation ID and the resolved
// client address, making both available to the engine's audit trail. An
// inbound ID is honored; otherwise one is generated.
func Correlation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(CorrelationHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(CorrelationHeader, id)

			ctx := authgate.WithCorrelationID(r.Context(), id)
			ctx = authgate.WithClientIP(ctx, ClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request at info level, or warn for 5xx.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			entry := log.Info()
			if rec.status >= http.StatusInternalServerError {
				entry = log.Warn()
			}
			entry = entry.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Str("client_ip", ClientIP(r))
			if id := authgate.CorrelationIDFromContext(r.Context()); id != "" {
				entry = entry.Str("correlation_id", id)
			}
			entry.Msg("request")
		})
	}
}
