package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses as the source system exports them.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
	PaymentCancelled = "CANCELLED"
)

// Purchase is a pack purchase imported from the source CSV. Monetary sums
// only count purchases with PaymentCompleted status.
type Purchase struct {
	ID         int64  `json:"-"`
	Platform   string `json:"platform"`
	OriginalID int64  `json:"id"`

	BuyerOriginalID *int64 `json:"buyer_id"`

	AmountUSDT      decimal.Decimal `json:"amount_usdt"`
	TxHash          string          `json:"tx_hash"`
	BlockNumber     *int64          `json:"block_number,omitempty"`
	ContractAddress string          `json:"contract_address,omitempty"`
	Metadata        map[string]any  `json:"metadata"`

	PaymentStatus        string `json:"payment_status"`
	ReferralSystemStatus *int64 `json:"referral_system_status,omitempty"`
	PackID               *int64 `json:"pack_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
