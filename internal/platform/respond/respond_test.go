// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authgate/internal/platform/apperr"
	"github.com/taibuivan/authgate/internal/platform/respond"
)

func TestOK(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.OK(recorder, map[string]string{"message": "ok"})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"message":"ok"}}`, recorder.Body.String())
}

func TestError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.ValidationError("Validation failed", apperr.FieldError{Field: "email", Message: "taken"}), http.StatusBadRequest, apperr.CodeValidation},
		{"unauthorized", apperr.Unauthorized("Invalid login credentials"), http.StatusUnauthorized, apperr.CodeUnauthorized},
		{"dependency", apperr.DependencyFailed("profile", errors.New("502")), http.StatusBadGateway, apperr.CodeDependencyFailed},
		{"plain_error", errors.New("boom"), http.StatusInternalServerError, apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respond.Error(recorder, httptest.NewRequest(http.MethodPost, "/", nil), tt.err)

			assert.Equal(t, tt.status, recorder.Code)

			var envelope respond.ErrorEnvelope
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
			assert.Equal(t, tt.code, envelope.Code)
			assert.NotContains(t, envelope.Error, "boom")
		})
	}
}
