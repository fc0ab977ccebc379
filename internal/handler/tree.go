package handler

import (
	"log/slog"
	"net/http"

	"refgraph/internal/config"
	"refgraph/internal/httputil"
	"refgraph/internal/service"
)

// TreeHandler serves the hierarchy endpoints: subtree, ancestors, roots and
// the staff-only reparent operation.
type TreeHandler struct {
	hierarchy *service.HierarchyService
	cfg       *config.Config
	logger    *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(hierarchy *service.HierarchyService, cfg *config.Config, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{hierarchy: hierarchy, cfg: cfg, logger: logger}
}

// GetTree handles GET /api/{platform}/users/{id}/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	node, err := h.hierarchy.GetTree(r.Context(), platform, id, queryInt(r, "depth", 0))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// GetAncestors handles GET /api/{platform}/users/{id}/ancestors
func (h *TreeHandler) GetAncestors(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	ancestors, err := h.hierarchy.GetAncestors(r.Context(), platform, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": ancestors})
}

// ListRoots handles GET /api/{platform}/users/roots
func (h *TreeHandler) ListRoots(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 0)
	if limit <= 0 {
		limit = config.DefaultPageSize
	} else if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	roots, total, err := h.hierarchy.ListRoots(r.Context(), platform,
		queryInt(r, "depth", 0), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page{
		Items:  roots,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// reparentRequest is the body of POST .../reparent. A null new_parent_id
// promotes the user to a root.
type reparentRequest struct {
	NewParentID *int64 `json:"new_parent_id"`
}

// Reparent handles POST /api/{platform}/users/{id}/reparent
func (h *TreeHandler) Reparent(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireStaff(w, r)
	if !ok {
		return
	}
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req reparentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.hierarchy.Reparent(r.Context(), platform, id, req.NewParentID); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("reparent applied",
		"staff", claims.SellerID(),
		"platform", platform,
		"user", id,
		"new_parent", req.NewParentID,
	)

	node, err := h.hierarchy.GetTree(r.Context(), platform, id, 1)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, node)
}
