package handler

import (
	"errors"
	"net/http"
	"strconv"

	"refgraph/internal/config"
	"refgraph/internal/domain"
	"refgraph/internal/domain/models"
	"refgraph/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError

	switch {
	case errors.Is(err, domain.ErrRebuildInProgress):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondError(w, conflictErr.StatusCode(), conflictErr.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// page is the envelope for paginated listings.
type page struct {
	Items  any   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// queryInt64Ptr reads an optional integer query parameter.
func queryInt64Ptr(r *http.Request, name string) *int64 {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// platformName validates the {platform} path segment against the configured
// registry. Unknown platforms are a 404, like any other missing resource.
func platformName(w http.ResponseWriter, r *http.Request, cfg *config.Config) (string, bool) {
	name := r.PathValue("platform")
	if _, ok := cfg.PlatformByName(name); !ok {
		httputil.RespondError(w, http.StatusNotFound, "unknown platform: "+name)
		return "", false
	}
	return name, true
}

// requireSeller returns the verified seller claims or writes the failure
// response.
func requireSeller(w http.ResponseWriter, r *http.Request) (*models.SellerClaims, bool) {
	claims := httputil.GetClaims(r)
	if claims == nil {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	if !claims.IsSeller {
		httputil.RespondError(w, http.StatusForbidden, "seller account required")
		return nil, false
	}
	return claims, true
}

// requireStaff returns the verified staff claims or writes the failure
// response.
func requireStaff(w http.ResponseWriter, r *http.Request) (*models.SellerClaims, bool) {
	claims := httputil.GetClaims(r)
	if claims == nil {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	if !claims.IsStaff {
		httputil.RespondError(w, http.StatusForbidden, "staff account required")
		return nil, false
	}
	return claims, true
}
