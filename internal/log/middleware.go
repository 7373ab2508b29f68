package log

import (
	"context"
	"log/slog"
	"net/http"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, or a logger around slog.Default
// when ctx carries none.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return newLogger(slog.Default(), "unknown")
}

// ContextMiddleware puts logger into every request context, tagged with the
// request id returned by requestID. It has to run inside the middleware that
// assigns request ids.
func ContextMiddleware(logger *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if id := requestID(r); id != "" {
				l = l.With(FieldRequestID, id)
			}
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), l)))
		})
	}
}

// StructuredLogger writes the fixed-shape log lines of the HTTP layer and of
// gameday transitions.
type StructuredLogger struct {
	http    *Logger
	gameday *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		http:    logger.WithComponent(ComponentHTTP),
		gameday: logger.WithComponent(ComponentGameday),
	}
}

// levelFor maps a response status to a log level: client errors warn,
// server errors are errors.
func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithClientIP(clientIP)
	sl.http.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)
	sl.http.Log(ctx, levelFor(statusCode), "HTTP request completed", fields.ToSlice()...)
}

// LogStatusChange records one advance or revert of a gameday. from and to
// are the German status captions.
func (sl *StructuredLogger) LogStatusChange(ctx context.Context, gamedayID int64, from, to string, op string) {
	fields := NewFields().
		WithGameday(gamedayID, to).
		WithOperation(op).
		ToSlice()
	sl.gameday.InfoContext(ctx, "Gameday status changed", append(fields, FieldFromStatus, from)...)
}
