package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"refgraph/internal/httputil"
	"refgraph/internal/service"
)

// AssignmentHandler serves the seller wallet-claim endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	logger      *slog.Logger
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignments *service.AssignmentService, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, logger: logger}
}

// Claim handles POST /api/sellers/assignments/claim
func (h *AssignmentHandler) Claim(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireSeller(w, r)
	if !ok {
		return
	}

	var req service.ClaimRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignment, err := h.assignments.Claim(r.Context(), claims, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, assignment)
}

// Unclaim handles POST /api/sellers/assignments/unclaim
func (h *AssignmentHandler) Unclaim(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireSeller(w, r)
	if !ok {
		return
	}

	var req service.UnclaimRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.assignments.Unclaim(r.Context(), claims, &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Mine handles GET /api/sellers/assignments/mine
func (h *AssignmentHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireSeller(w, r)
	if !ok {
		return
	}

	assignments, err := h.assignments.Mine(r.Context(), claims, r.URL.Query().Get("platform"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": assignments})
}

// ForUser handles GET /api/sellers/assignments/for-user
func (h *AssignmentHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.ParseInt(r.URL.Query().Get("target_user_id"), 10, 64)
	if err != nil || targetID <= 0 {
		httputil.RespondError(w, http.StatusBadRequest, "invalid target_user_id")
		return
	}

	assignments, svcErr := h.assignments.ForUser(r.Context(), r.URL.Query().Get("platform"), targetID)
	if svcErr != nil {
		handleError(w, svcErr)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": assignments})
}

// Bulk handles GET /api/sellers/assignments/bulk
func (h *AssignmentHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	userIDs, err := parseIDList(r.URL.Query().Get("user_ids"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	grouped, svcErr := h.assignments.Bulk(r.Context(), r.URL.Query().Get("platform"), userIDs)
	if svcErr != nil {
		handleError(w, svcErr)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{"assignments": grouped})
}

// parseIDList parses a comma-separated id list query parameter.
func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, strconv.ErrSyntax
		}
		ids = append(ids, id)
	}
	return ids, nil
}
