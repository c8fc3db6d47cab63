package http

import (
	"net/http"

	"github.com/aussiebroadwan/bartab-security/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-security/pkg/httpx"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
)

// JWKSHandler exposes the public verification keys. With HS256 the set is
// empty since the shared secret is never published.
func JWKSHandler(keys *jwtx.Keys) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
