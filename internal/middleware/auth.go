package middleware

import (
	"net/http"
	"strings"

	"refgraph/internal/auth"
	"refgraph/internal/httputil"
)

// Auth verifies a bearer token when one is present and stores the claims in
// the request context. Requests without an Authorization header pass through
// unauthenticated; handlers that need a seller or staff identity check the
// context claims. A malformed or invalid token is rejected here with 401
// rather than silently treated as anonymous.
func Auth(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithClaims(r, claims))
		})
	}
}
