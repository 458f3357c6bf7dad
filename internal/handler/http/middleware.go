package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/willjrcristo/storefront-billing/internal/auth"
)

type ctxKey int

const claimsKey ctxKey = iota

// RequireAdminKey exige o header X-Admin-Key igual à chave configurada.
// Chave vazia nunca autoriza.
func RequireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Key")
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireBearer valida o token "Authorization: Bearer <jwt>" e guarda as claims no contexto.
func RequireBearer(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized - No token provided")
				return
			}

			claims, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized - Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// ClaimsFromContext devolve as claims guardadas por RequireBearer.
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(auth.Claims)
	return c, ok
}
