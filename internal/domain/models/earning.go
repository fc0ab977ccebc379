package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Earning statuses and types as the source system exports them.
const (
	EarningPending   = "PENDING"
	EarningWithdrawn = "WITHDRAWN"
	EarningCancelled = "CANCELLED"

	EarningTypeNetwork     = "NETWORK"
	EarningTypeBonusPool   = "BONUS_POOL"
	EarningTypeLegendsPool = "LEGENDS_POOL"
)

// Earning is a referral payout computed by the external commission system.
// We only store and serve it; totals count EarningWithdrawn rows.
type Earning struct {
	ID         int64  `json:"-"`
	Platform   string `json:"platform"`
	OriginalID int64  `json:"id"`

	RecipientOriginalID *int64 `json:"recipient_id"`
	BuyerOriginalID     *int64 `json:"buyer_id"`
	PurchaseOriginalID  *int64 `json:"purchase_id"`

	EarningType string          `json:"earning_type"`
	Level       *int64          `json:"level,omitempty"`
	Percentage  decimal.Decimal `json:"percentage"`
	AmountUSDT  decimal.Decimal `json:"amount_usdt"`
	Status      string          `json:"status"`

	IsGracePeriod      bool `json:"is_grace_period"`
	RecipientWasActive bool `json:"recipient_was_active"`
	CompressionApplied bool `json:"compression_applied"`

	SharesCount    *int64 `json:"shares_count,omitempty"`
	DistributionID *int64 `json:"distribution_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
