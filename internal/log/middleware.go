package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Middleware adds logger to every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// FromContext returns the request logger, or one wrapping slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// RequestIDMiddleware tags the request logger with the request ID.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger writes the records shared across handlers and workers.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx responses.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogEstimate records a served estimate.
func (sl *StructuredLogger) LogEstimate(ctx context.Context, household, resolution LogFields, monthlyTotal float64) {
	fields := NewFields().WithOperation(OpEstimate)
	for k, v := range household {
		fields[k] = v
	}
	for k, v := range resolution {
		fields[k] = v
	}
	fields[FieldMonthlyTotal] = monthlyTotal

	sl.logger.WithComponent(ComponentEstimate).InfoContext(ctx, "Cost estimate computed", fields.ToSlice()...)
}

// LogIncome records a served income recommendation.
func (sl *StructuredLogger) LogIncome(ctx context.Context, monthlyCost, savings, tax, buffer, grossMonthly float64) {
	fields := NewFields().
		WithOperation(OpRecommend).
		WithIncome(savings, tax, buffer, grossMonthly)
	fields[FieldMonthlyTotal] = monthlyCost

	sl.logger.WithComponent(ComponentIncome).InfoContext(ctx, "Income recommendation computed", fields.ToSlice()...)
}

// LogRefresh records a completed price table refresh.
func (sl *StructuredLogger) LogRefresh(ctx context.Context, source string, snapshotID int64, entries int) {
	fields := NewFields().WithOperation(OpRefresh)
	fields[FieldSource] = source
	fields[FieldSnapshotID] = snapshotID
	fields[FieldEntries] = entries

	sl.logger.WithComponent(ComponentWorker).InfoContext(ctx, "Price table refreshed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}
