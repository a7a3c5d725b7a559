package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/logging"
)

type contextKey string

const (
	requestIDKey contextKey = "requestID"
	loggerKey    contextKey = "logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestContext adds a request ID and a request-scoped logger to the
// context. An incoming X-Request-ID is kept so traces join up across hops.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}
		ctx = context.WithValue(ctx, requestIDKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		logger := logging.With(
			"request_id", requestID,
			"client_ip", ClientIP(r),
		)
		ctx = context.WithValue(ctx, loggerKey, &requestLogger{logger: logger})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger is shared by pointer so fields added deep in the chain
// show up in the access log line.
type requestLogger struct {
	logger *slog.Logger
}

// AddLogFields attaches args to the request logger, e.g. once the user is known.
func AddLogFields(ctx context.Context, args ...any) {
	if rl, ok := ctx.Value(loggerKey).(*requestLogger); ok {
		rl.logger = rl.logger.With(args...)
	}
}

func GetLoggerFromContext(ctx context.Context) *slog.Logger {
	if rl, ok := ctx.Value(loggerKey).(*requestLogger); ok {
		return rl.logger
	}
	return slog.Default()
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// ClientIP prefers proxy headers over the socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
