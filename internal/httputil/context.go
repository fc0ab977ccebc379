package httputil

import (
	"context"
	"net/http"

	"refgraph/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const claimsKey contextKey = "sellerClaims"

// WithClaims adds verified seller claims to the request context
func WithClaims(r *http.Request, claims *models.SellerClaims) *http.Request {
	ctx := context.WithValue(r.Context(), claimsKey, claims)
	return r.WithContext(ctx)
}

// GetClaims retrieves seller claims from context, nil for unauthenticated
// requests
func GetClaims(r *http.Request) *models.SellerClaims {
	claims, _ := r.Context().Value(claimsKey).(*models.SellerClaims)
	return claims
}
