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

// AssignmentService manages seller wallet claims.
type AssignmentService struct {
	assignmentRepo repositories.AssignmentRepository
	userRepo       repositories.UserRepository
	txManager      repositories.TransactionManager
	logger         *slog.Logger
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	assignmentRepo repositories.AssignmentRepository,
	userRepo repositories.UserRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *AssignmentService {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		txManager:      txManager,
		logger:         logger,
	}
}

// ClaimRequest is the body of a wallet claim.
type ClaimRequest struct {
	Platform     string `json:"platform"`
	TargetUserID int64  `json:"target_user_id"`
	Notes        string `json:"notes"`
}

func (r *ClaimRequest) validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Platform, validation.Required),
		validation.Field(&r.TargetUserID, validation.Required, validation.Min(1)),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
	)
}

// Claim records that the seller claims the target user's wallet. At most
// MaxSellersPerWallet sellers per wallet; a repeat claim by the same seller
// conflicts. The count check and the insert share one transaction.
func (s *AssignmentService) Claim(ctx context.Context, claims *models.SellerClaims, req *ClaimRequest) (*models.SellerAssignment, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	target, err := s.userRepo.GetByOriginalID(ctx, req.Platform, req.TargetUserID)
	if err != nil {
		return nil, err
	}

	assignment := &models.SellerAssignment{
		SellerID:      claims.SellerID(),
		SellerName:    claims.DisplayName(),
		Platform:      req.Platform,
		TargetUserID:  req.TargetUserID,
		WalletAddress: target.Wallet,
		Notes:         req.Notes,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		count, err := s.assignmentRepo.CountForWallet(txCtx, req.Platform, req.TargetUserID)
		if err != nil {
			return err
		}
		if count >= models.MaxSellersPerWallet {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("wallet already claimed by %d sellers", count),
				ResourceType: "assignment",
				ResourceID:   fmt.Sprintf("%s/%d", req.Platform, req.TargetUserID),
			}
		}
		return s.assignmentRepo.Create(txCtx, assignment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("wallet claimed",
		"seller", assignment.SellerID,
		"platform", assignment.Platform,
		"target_user", assignment.TargetUserID,
	)
	return assignment, nil
}

// UnclaimRequest is the body of a claim removal.
type UnclaimRequest struct {
	Platform     string `json:"platform"`
	TargetUserID int64  `json:"target_user_id"`
}

func (r *UnclaimRequest) validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Platform, validation.Required),
		validation.Field(&r.TargetUserID, validation.Required, validation.Min(1)),
	)
}

// Unclaim removes the seller's claim on the target user's wallet.
func (s *AssignmentService) Unclaim(ctx context.Context, claims *models.SellerClaims, req *UnclaimRequest) error {
	if err := req.validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	existed, err := s.assignmentRepo.Delete(ctx, claims.SellerID(), req.Platform, req.TargetUserID)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("assignment %s/%d: %w", req.Platform, req.TargetUserID, domain.ErrNotFound)
	}

	s.logger.Info("wallet unclaimed",
		"seller", claims.SellerID(),
		"platform", req.Platform,
		"target_user", req.TargetUserID,
	)
	return nil
}

// Mine lists the seller's claims on one platform.
func (s *AssignmentService) Mine(ctx context.Context, claims *models.SellerClaims, platform string) ([]models.SellerAssignment, error) {
	if err := validation.Validate(platform, validation.Required); err != nil {
		return nil, fmt.Errorf("%w: platform: %v", domain.ErrValidation, err)
	}
	return s.assignmentRepo.ListBySeller(ctx, claims.SellerID(), platform)
}

// ForUser lists every claim on one user's wallet.
func (s *AssignmentService) ForUser(ctx context.Context, platform string, targetUserID int64) ([]models.SellerAssignment, error) {
	if err := validation.Validate(platform, validation.Required); err != nil {
		return nil, fmt.Errorf("%w: platform: %v", domain.ErrValidation, err)
	}
	return s.assignmentRepo.ListForUser(ctx, platform, targetUserID)
}

// Bulk groups claims for up to MaxBulkUsers users in one call.
func (s *AssignmentService) Bulk(ctx context.Context, platform string, userIDs []int64) (map[int64][]models.SellerAssignment, error) {
	err := validation.Errors{
		"platform": validation.Validate(platform, validation.Required),
		"user_ids": validation.Validate(userIDs,
			validation.Required,
			validation.Length(1, config.MaxBulkUsers),
		),
	}.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	return s.assignmentRepo.ListForUsers(ctx, platform, userIDs)
}
