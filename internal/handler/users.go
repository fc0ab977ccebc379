package handler

import (
	"log/slog"
	"net/http"

	"refgraph/internal/config"
	"refgraph/internal/domain/repositories"
	"refgraph/internal/httputil"
	"refgraph/internal/service"
)

// UserHandler serves the per-platform user endpoints.
type UserHandler struct {
	users  *service.UserService
	cfg    *config.Config
	logger *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *service.UserService, cfg *config.Config, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, cfg: cfg, logger: logger}
}

// ListUsers handles GET /api/{platform}/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}

	req := &service.ListUsersRequest{
		Search:  r.URL.Query().Get("search"),
		OrderBy: r.URL.Query().Get("order_by"),
		Limit:   queryInt(r, "limit", 0),
		Offset:  queryInt(r, "offset", 0),
	}
	if s := r.URL.Query().Get("is_active"); s != "" {
		active := s == "true" || s == "1"
		req.IsActive = &active
	}

	users, total, err := h.users.ListUsers(r.Context(), platform, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page{
		Items:  users,
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
}

// GetUser handles GET /api/{platform}/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		httputil.RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.users.GetUser(r.Context(), platform, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, user)
}

// SearchUsers handles GET /api/{platform}/users/search
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}

	users, err := h.users.SearchUsers(r.Context(),
		platform,
		r.URL.Query().Get("q"),
		queryInt(r, "limit", 0),
	)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": users})
}

// GetStats handles GET /api/{platform}/stats
func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}

	stats, err := h.users.GetStats(r.Context(), platform)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, stats)
}

// ListPurchases handles GET /api/{platform}/purchases
func (h *UserHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}

	filter := repositories.PurchaseFilter{
		PaymentStatus:   r.URL.Query().Get("payment_status"),
		BuyerOriginalID: queryInt64Ptr(r, "buyer_id"),
		PackID:          queryInt64Ptr(r, "pack_id"),
		Limit:           queryInt(r, "limit", 0),
		Offset:          queryInt(r, "offset", 0),
	}

	purchases, total, err := h.users.ListPurchases(r.Context(), platform, &filter)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page{
		Items:  purchases,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// ListEarnings handles GET /api/{platform}/earnings
func (h *UserHandler) ListEarnings(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformName(w, r, h.cfg)
	if !ok {
		return
	}

	filter := repositories.EarningFilter{
		Status:              r.URL.Query().Get("status"),
		EarningType:         r.URL.Query().Get("earning_type"),
		RecipientOriginalID: queryInt64Ptr(r, "recipient_id"),
		Limit:               queryInt(r, "limit", 0),
		Offset:              queryInt(r, "offset", 0),
	}

	earnings, total, err := h.users.ListEarnings(r.Context(), platform, &filter)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page{
		Items:  earnings,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// HealthCheck handles GET /health
func (h *UserHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
