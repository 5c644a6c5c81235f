// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/authgate/internal/platform/constants"
	"github.com/taibuivan/authgate/internal/platform/respond"
)

// readinessTimeout bounds each dependency check of /ready.
const readinessTimeout = 2 * time.Second

// Checker probes one dependency.
type Checker func(ctx context.Context) error

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// CheckStore pings the PostgreSQL identity store.
	CheckStore Checker

	// CheckCache pings the Redis session cache.
	CheckCache Checker
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health.
func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

// readiness handles GET /ready.
//
// The cache is reported but never makes the service unready: credential
// flows fall back to the store when it is down.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	results := make([]checkResult, 0, 2)
	ready := true

	if check := handler.dependencies.CheckStore; check != nil {
		result := handler.run(request.Context(), "postgres", check)
		ready = ready && result.IsOK
		results = append(results, result)
	}

	if check := handler.dependencies.CheckCache; check != nil {
		results = append(results, handler.run(request.Context(), "redis", check))
	}

	status, httpStatus := "ready", http.StatusOK
	if !ready {
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: map[string]any{
		constants.FieldStatus: status,
		constants.FieldChecks: results,
	}})
}

func (handler *healthHandler) run(ctx context.Context, name string, check Checker) checkResult {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	result := checkResult{Name: name, IsOK: true}
	if err := check(ctx); err != nil {
		result.IsOK = false
		result.Error = err.Error()
		handler.logger.ErrorContext(ctx, "readiness_check_failed",
			slog.String("dependency", name),
			slog.Any("error", err),
		)
	}
	return result
}
