package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/opencustody/strongroom/pkg/slogx"
	"github.com/opencustody/strongroom/pkg/tokenx"
)

// AuthnMiddleware verifies the bearer token structurally: signature, expiry
// and kind. Only access-kind tokens pass; verification and refresh tokens
// are rejected here no matter how fresh they are. The verified subject is
// injected into the request context for downstream handlers.
//
// Authorization beyond token validity (roles, ownership) is the handlers'
// job, not this middleware's.
func AuthnMiddleware(codec *tokenx.Codec) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			subject, err := codec.Verify(raw, tokenx.KindAccess)
			if err != nil {
				log.Warn("bearer token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = context.WithValue(ctx, CtxKeySubject, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
