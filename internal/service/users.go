package service

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"refgraph/internal/config"
	"refgraph/internal/domain"
	"refgraph/internal/domain/models"
	"refgraph/internal/domain/repositories"
)

// UserService serves user listings, lookups, search and platform stats.
type UserService struct {
	userRepo     repositories.UserRepository
	purchaseRepo repositories.PurchaseRepository
	earningRepo  repositories.EarningRepository
	logger       *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	purchaseRepo repositories.PurchaseRepository,
	earningRepo repositories.EarningRepository,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		purchaseRepo: purchaseRepo,
		earningRepo:  earningRepo,
		logger:       logger,
	}
}

// ListUsersRequest carries the query parameters of the user listing.
type ListUsersRequest struct {
	Search   string
	IsActive *bool
	OrderBy  string
	Limit    int
	Offset   int
}

func (r *ListUsersRequest) validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OrderBy,
			validation.In("", "original_id", "username", "created_at", "-created_at"),
		),
		validation.Field(&r.Offset, validation.Min(0)),
	)
}

// ListUsers returns a page of users with their tree annotations.
func (s *UserService) ListUsers(ctx context.Context, platform string, req *ListUsersRequest) ([]models.UserWithTotals, int64, error) {
	if err := req.validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	req.Limit = clampLimit(req.Limit)

	filter := repositories.UserFilter{
		Search:   req.Search,
		IsActive: req.IsActive,
		OrderBy:  req.OrderBy,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}

	return s.userRepo.List(ctx, platform, filter)
}

// GetUser returns one user with its tree annotations.
func (s *UserService) GetUser(ctx context.Context, platform string, originalID int64) (*models.UserWithTotals, error) {
	return s.userRepo.GetByOriginalID(ctx, platform, originalID)
}

// SearchUsers serves autocomplete: prefix matches on username, wallet and
// referral code. Queries shorter than two characters are rejected rather
// than scanning the whole platform.
func (s *UserService) SearchUsers(ctx context.Context, platform, query string, limit int) ([]models.UserWithTotals, error) {
	err := validation.Validate(query,
		validation.Required,
		validation.Length(config.MinSearchLength, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: q: %v", domain.ErrValidation, err)
	}

	if limit <= 0 || limit > config.MaxSearchLimit {
		limit = config.MaxSearchLimit
	}

	return s.userRepo.Search(ctx, platform, query, limit)
}

// GetStats returns the platform's headline totals.
func (s *UserService) GetStats(ctx context.Context, platform string) (*models.PlatformStats, error) {
	totalUsers, rootUsers, err := s.userRepo.Counts(ctx, platform)
	if err != nil {
		return nil, err
	}

	purchaseCount, volume, err := s.purchaseRepo.CompletedTotals(ctx, platform)
	if err != nil {
		return nil, err
	}

	earningsTotal, err := s.earningRepo.WithdrawnTotal(ctx, platform)
	if err != nil {
		return nil, err
	}

	return &models.PlatformStats{
		Platform:       platform,
		TotalUsers:     totalUsers,
		TotalPurchases: purchaseCount,
		TotalVolume:    volume,
		TotalEarnings:  earningsTotal,
		RootUsers:      rootUsers,
	}, nil
}

// ListPurchases returns a page of purchases. The filter's limit and offset
// are normalized in place so callers can echo the effective page.
func (s *UserService) ListPurchases(ctx context.Context, platform string, filter *repositories.PurchaseFilter) ([]models.Purchase, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.purchaseRepo.List(ctx, platform, *filter)
}

// ListEarnings returns a page of referral earnings.
func (s *UserService) ListEarnings(ctx context.Context, platform string, filter *repositories.EarningFilter) ([]models.Earning, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.earningRepo.List(ctx, platform, *filter)
}

// clampLimit applies the default and maximum page sizes.
func clampLimit(limit int) int {
	if limit <= 0 {
		return config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		return config.MaxPageSize
	}
	return limit
}
