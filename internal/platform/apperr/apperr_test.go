// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authgate/internal/platform/apperr"
)

/*
TestAppError_Taxonomy verifies the code and HTTP status of every failure kind.
*/
func TestAppError_Taxonomy(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		err    *apperr.AppError
		code   string
		status int
	}{
		{"invalid_role", apperr.InvalidRole("Janitor"), apperr.CodeInvalidRole, http.StatusBadRequest},
		{"forbidden", apperr.Forbidden("no"), apperr.CodeForbidden, http.StatusForbidden},
		{"validation", apperr.ValidationError("bad"), apperr.CodeValidation, http.StatusBadRequest},
		{"issuance", apperr.IssuanceFailed(cause), apperr.CodeIssuanceFailed, http.StatusInternalServerError},
		{"dependency", apperr.DependencyFailed("profile-service", cause), apperr.CodeDependencyFailed, http.StatusBadGateway},
		{"unauthorized", apperr.Unauthorized("no"), apperr.CodeUnauthorized, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

/*
TestHasCode verifies code detection through wrapped error chains.
*/
func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("auth_service_register_failed: %w", apperr.Forbidden("Only administrators"))

	assert.True(t, apperr.HasCode(wrapped, apperr.CodeForbidden))
	assert.False(t, apperr.HasCode(wrapped, apperr.CodeUnauthorized))
	assert.False(t, apperr.HasCode(errors.New("plain"), apperr.CodeForbidden))
}

/*
TestWithCause verifies the cause is attached to a copy and reachable via errors.Is.
*/
func TestWithCause(t *testing.T) {
	cause := errors.New("token is malformed")
	base := apperr.Unauthorized("Invalid access token")

	withCause := base.WithCause(cause)

	require.NotSame(t, base, withCause)
	assert.Nil(t, base.Cause)
	assert.ErrorIs(t, withCause, cause)
}
