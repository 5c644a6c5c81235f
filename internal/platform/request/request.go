// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil extracts typed data from incoming HTTP requests: JSON
bodies, bearer tokens and the caller identity placed in the context by the
authentication middleware.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/taibuivan/authgate/internal/platform/constants"
	"github.com/taibuivan/authgate/internal/platform/ctxutil"
	"github.com/taibuivan/authgate/internal/platform/sec"
	"github.com/taibuivan/authgate/internal/platform/validate"
)

// maxBodyBytes bounds credential payloads, which are a few hundred bytes.
const maxBodyBytes = 64 << 10

/*
DecodeJSON reads the request body into target.

Returns validate.ErrInvalidJSON if the body is not a single JSON value or
exceeds the size limit.
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
BearerToken returns the token of an "Authorization: Bearer <token>" header,
or "" when the header is absent or uses another scheme.
*/
func BearerToken(request *http.Request) string {
	header := request.Header.Get(constants.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

/*
Caller returns the verified claims of the request's bearer token, or nil for
anonymous requests.
*/
func Caller(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetCaller(request.Context())
}
