// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/taibuivan/authgate/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/authgate/internal/platform/request"
	"github.com/taibuivan/authgate/internal/platform/sec"
)

// TokenVerifier verifies a live (unexpired) access token.
type TokenVerifier interface {
	VerifyToken(token string) (*sec.AuthClaims, error)
}

// Authenticate identifies the caller from an optional bearer token.
//
// # Flow
//  1. No bearer token: the request proceeds as anonymous.
//  2. A token that fails verification is ignored and the request proceeds
//     as anonymous. Refresh requests legitimately carry expired tokens, and
//     operations that need a caller reject anonymous ones themselves.
//  3. Otherwise the verified [*sec.AuthClaims] are placed in the context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token := requestutil.BearerToken(request)
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "bearer_token_ignored",
					slog.Any("error", err),
				)
				next.ServeHTTP(writer, request)
				return
			}

			ctx := ctxutil.WithCaller(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
