package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"refgraph/internal/domain/models"
)

// EarningFilter narrows and pages earning listings.
type EarningFilter struct {
	Status              string
	EarningType         string
	RecipientOriginalID *int64
	Limit               int
	Offset              int
}

// EarningRepository persists imported referral earnings.
type EarningRepository interface {
	BulkInsert(ctx context.Context, earnings []models.Earning) error
	DeletePlatform(ctx context.Context, platform string) error
	List(ctx context.Context, platform string, filter EarningFilter) ([]models.Earning, int64, error)
	// WithdrawnTotal sums withdrawn earnings.
	WithdrawnTotal(ctx context.Context, platform string) (decimal.Decimal, error)
}
