package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type ctxKey struct{}

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger from context, if present.
func FromContext(ctx context.Context) (*zap.Logger, bool) {
	logger, ok := ctx.Value(ctxKey{}).(*zap.Logger)
	return logger, ok
}

// FromContextOr returns the context logger or fallback.
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := FromContext(ctx); ok {
		return logger
	}
	return fallback
}

// FromRequest pulls the request-scoped logger from the HTTP request when available, falling back to the provided default.
func FromRequest(r *http.Request, fallback *zap.Logger) *zap.Logger {
	return FromContextOr(r.Context(), fallback)
}

// Enrich returns a context whose logger carries the extra fields. It is a no-op when no logger is attached.
func Enrich(ctx context.Context, fields ...zap.Field) context.Context {
	logger, ok := FromContext(ctx)
	if !ok {
		return ctx
	}
	return WithLogger(ctx, logger.With(fields...))
}

// RequestLogger returns an HTTP middleware that enriches the base logger with request scoped fields,
// stores it on the context, and emits a completion log once the handler finishes.
// Server errors complete at error severity, client errors at warning.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			logger := base
			if requestID != "" {
				logger = logger.With(zap.String("request_id", requestID))
			}

			logger = logger.With(
				zap.String("http_method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			holder := &loggerHolder{logger: logger}
			ctx := context.WithValue(WithLogger(r.Context(), logger), holderKey{}, holder)

			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			final := holder.logger
			switch status := ww.Status(); {
			case status >= http.StatusInternalServerError:
				final.Error("request completed", fields...)
			case status >= http.StatusBadRequest:
				final.Warn("request completed", fields...)
			default:
				final.Info("request completed", fields...)
			}
		})
	}
}

type holderKey struct{}

// loggerHolder lets inner middleware hand enriched fields (actor, tenant) back
// to the completion log emitted by RequestLogger.
type loggerHolder struct {
	logger *zap.Logger
}

// Promote records logger as the one RequestLogger uses for the completion line.
func Promote(ctx context.Context, logger *zap.Logger) {
	if h, ok := ctx.Value(holderKey{}).(*loggerHolder); ok && logger != nil {
		h.logger = logger
	}
}
