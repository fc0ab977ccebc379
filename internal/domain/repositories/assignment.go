package repositories

import (
	"context"

	"refgraph/internal/domain/models"
)

// AssignmentRepository persists seller wallet claims.
type AssignmentRepository interface {
	// Create inserts a claim; a duplicate (seller, platform, target user)
	// surfaces as a ConflictError.
	Create(ctx context.Context, assignment *models.SellerAssignment) error
	// Delete removes the seller's claim; reports whether a row existed.
	Delete(ctx context.Context, sellerID, platform string, targetUserID int64) (bool, error)

	CountForWallet(ctx context.Context, platform string, targetUserID int64) (int, error)
	ListBySeller(ctx context.Context, sellerID, platform string) ([]models.SellerAssignment, error)
	ListForUser(ctx context.Context, platform string, targetUserID int64) ([]models.SellerAssignment, error)
	// ListForUsers groups claims for many users in one query.
	ListForUsers(ctx context.Context, platform string, targetUserIDs []int64) (map[int64][]models.SellerAssignment, error)
}
