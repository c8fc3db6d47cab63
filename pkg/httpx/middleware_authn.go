package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

// TokenValidator checks a raw access token. A nil error means the token is
// currently trusted; the error text is only logged.
type TokenValidator interface {
	ValidateAccess(ctx context.Context, raw string) (jwtx.Claims, error)
}

// UnavailableError is implemented by validator errors meaning the token could
// not be judged at all, for example because the revocation store is down.
// AuthnMiddleware answers 503 for them so clients keep their session.
type UnavailableError interface {
	error
	Unavailable() bool
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(ctx context.Context, raw string) (jwtx.Claims, error)

func (f TokenValidatorFunc) ValidateAccess(ctx context.Context, raw string) (jwtx.Claims, error) {
	return f(ctx, raw)
}

// AuthnMiddleware requires a valid bearer access token and puts its claims in
// the request context.
func AuthnMiddleware(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.ValidateAccess(ctx, raw)
			if unavailable(err) {
				slogx.FromContext(ctx).Error("bearer token validation unavailable", "err", err)
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"error":             "service_unavailable",
					"error_description": "token validation unavailable",
				})
				return
			}
			if err != nil {
				slogx.FromContext(ctx).Warn("bearer token rejected", "err", err)
				writeBearerError(w, "token rejected")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, raw, claims)))
		})
	}
}

// RequireAnyRole lets the request through only if the authenticated caller
// holds at least one of the roles.
func RequireAnyRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if ok {
				for _, role := range roles {
					if claims.HasRole(role) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
			WriteJSON(w, http.StatusForbidden, map[string]string{
				"error":             "forbidden",
				"error_description": "requires role " + strings.Join(roles, " or "),
			})
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if len(authz) < 7 || !strings.EqualFold(authz[:7], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(authz[7:])
	return raw, raw != ""
}

func unavailable(err error) bool {
	var u UnavailableError
	return errors.As(err, &u) && u.Unavailable()
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
