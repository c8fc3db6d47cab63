package httpx

import (
	"context"

	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyClaims   ctxKey = "claims"
	CtxKeyRawToken ctxKey = "raw_token"
)

func contextWithAuth(ctx context.Context, raw string, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.UserID)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	ctx = context.WithValue(ctx, CtxKeyRawToken, raw)
	return ctx
}

// ClaimsFromContext returns the access token claims placed by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// RawTokenFromContext returns the bearer token exactly as presented.
func RawTokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeyRawToken).(string)
	return s
}
