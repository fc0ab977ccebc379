package repositories

import (
	"context"

	"refgraph/internal/domain/models"
)

// UserFilter narrows and pages user listings.
type UserFilter struct {
	Search   string // matches username, wallet, referral code, email
	IsActive *bool
	OrderBy  string // original_id (default), username, created_at, -created_at
	Limit    int
	Offset   int
}

// TreeNodeRecord is the minimal row the reparent path loads to reconstruct
// the affected trees in memory.
type TreeNodeRecord struct {
	OriginalID       int64
	ParentOriginalID *int64
	Username         string
	Lft              int
	Rght             int
	TreeID           int
	Depth            int
}

// NumberingUpdate carries recomputed numbering (and possibly a new parent)
// back to storage after a reparent.
type NumberingUpdate struct {
	OriginalID       int64
	ParentOriginalID *int64
	Lft              int
	Rght             int
	TreeID           int
	Depth            int
}

// UserRepository persists platform users and answers the hierarchy queries
// expressed over the nested-set numbering columns.
type UserRepository interface {
	// BulkInsert loads imported users, numbering included.
	BulkInsert(ctx context.Context, users []models.User) error
	// DeletePlatform removes every user of one platform.
	DeletePlatform(ctx context.Context, platform string) error

	GetByOriginalID(ctx context.Context, platform string, originalID int64) (*models.UserWithTotals, error)
	List(ctx context.Context, platform string, filter UserFilter) ([]models.UserWithTotals, int64, error)
	Search(ctx context.Context, platform, query string, limit int) ([]models.UserWithTotals, error)

	// Ancestors returns the root-to-self path, self included.
	Ancestors(ctx context.Context, platform string, originalID int64) ([]models.UserWithTotals, error)
	// Subtree returns the node and up to maxDepth levels below it, in
	// pre-order (lft ascending).
	Subtree(ctx context.Context, platform string, originalID int64, maxDepth int) ([]models.UserWithTotals, error)
	// Roots pages through root users ordered by descendant count descending.
	Roots(ctx context.Context, platform string, limit, offset int) ([]models.UserWithTotals, int64, error)

	// Counts returns total and root user counts for stats.
	Counts(ctx context.Context, platform string) (total, roots int64, err error)

	// TreeNodes loads every node of the given trees for in-memory
	// renumbering.
	TreeNodes(ctx context.Context, platform string, treeIDs []int) ([]TreeNodeRecord, error)
	MaxTreeID(ctx context.Context, platform string) (int, error)
	// ApplyNumbering writes recomputed numbering rows.
	ApplyNumbering(ctx context.Context, platform string, updates []NumberingUpdate) error
}
