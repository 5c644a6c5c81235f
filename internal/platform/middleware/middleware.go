// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the cross-cutting HTTP processing chain.

It acts as a series of decorators around the standard http.Handler, injecting
traceability, safety and caller identity into every request lifecycle.

Standard Stack:

  - Trace: RequestID generation for log correlation.
  - Log: structured request logging (slog) with a per-request logger.
  - Guard: per-IP rate limiting and CORS validation.
  - Safe: panic recovery to prevent server crashes.
  - Identify: optional bearer-token authentication.
*/
package middleware

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/taibuivan/authgate/internal/platform/apperr"
	"github.com/taibuivan/authgate/internal/platform/constants"
	"github.com/taibuivan/authgate/internal/platform/ctxutil"
	"github.com/taibuivan/authgate/internal/platform/respond"
	"github.com/taibuivan/authgate/pkg/uuid"
)

// # Request Tracing

// RequestID attaches a correlation ID to every request, reusing the client's
// X-Request-ID when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestID := request.Header.Get(constants.HeaderXRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New()
		}

		writer.Header().Set(constants.HeaderXRequestID, requestID)
		ctx := ctxutil.WithRequestID(request.Context(), requestID)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// # Activity Logging

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// StructuredLogger injects a request-scoped logger into the context and logs
// one line per finished request, at a level derived from its status.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("remote_ip", RemoteIP(request)),
			)

			ctx := ctxutil.WithLogger(request.Context(), requestLogger)
			recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
			request = request.WithContext(ctx)

			next.ServeHTTP(recorder, request)

			level := slog.LevelInfo
			switch {
			case recorder.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case recorder.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.Int("status", recorder.status),
				slog.Int64("latency_ms", time.Since(startTime).Milliseconds()),
				slog.String("user_agent", request.UserAgent()),
			}
			requestLogger.LogAttrs(ctx, level, "http_request_finished", attrs...)
		})
	}
}

// # Reliability & Safety

// PanicRecovery converts a panic into a logged INTERNAL_ERROR response.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]

			ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "panic_recovered",
				slog.Any("error", recovered),
				slog.String("stack", string(stack)),
			)

			respond.Error(writer, request, apperr.Internal(nil))
		}()

		next.ServeHTTP(writer, request)
	})
}
