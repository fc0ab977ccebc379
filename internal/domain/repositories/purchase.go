package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"refgraph/internal/domain/models"
)

// PurchaseFilter narrows and pages purchase listings.
type PurchaseFilter struct {
	PaymentStatus   string
	BuyerOriginalID *int64
	PackID          *int64
	Limit           int
	Offset          int
}

// PurchaseRepository persists imported purchases.
type PurchaseRepository interface {
	BulkInsert(ctx context.Context, purchases []models.Purchase) error
	DeletePlatform(ctx context.Context, platform string) error
	List(ctx context.Context, platform string, filter PurchaseFilter) ([]models.Purchase, int64, error)
	// CompletedTotals returns the count and summed volume of completed
	// purchases.
	CompletedTotals(ctx context.Context, platform string) (count int64, volume decimal.Decimal, err error)
}
