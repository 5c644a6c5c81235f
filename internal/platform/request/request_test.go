// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authgate/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/authgate/internal/platform/request"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/platform/validate"
)

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Email string `json:"email"`
	}

	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c"}`))
	require.NoError(t, requestutil.DecodeJSON(httptest.NewRecorder(), request, &target))
	assert.Equal(t, "a@b.c", target.Email)

	request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	assert.ErrorIs(t, requestutil.DecodeJSON(httptest.NewRecorder(), request, &target), validate.ErrInvalidJSON)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc", "abc"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tt := range tests {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			request.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, requestutil.BearerToken(request), tt.header)
	}
}

func TestCaller(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, requestutil.Caller(request))

	claims := &sec.AuthClaims{UserID: "acc-1"}
	request = request.WithContext(ctxutil.WithCaller(request.Context(), claims))
	assert.Same(t, claims, requestutil.Caller(request))
}
